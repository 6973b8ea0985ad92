package nn

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/brensch/zeromax/game"
)

const (
	DefaultBatchSize    = 64
	DefaultBatchTimeout = 1 * time.Millisecond
)

// OnnxConfig tunes the request batching of an OnnxEvaluator.
type OnnxConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
}

type onnxRequest struct {
	input    []float32
	respChan chan onnxResponse
}

type onnxResponse struct {
	policy []float32
	value  float32
	err    error
}

// OnnxEvaluator runs a trained policy/value model through ONNX Runtime.
//
// Concurrent Evaluate calls are collected into batches to keep the runtime
// busy; each caller still observes a result identical to an independent
// single-state inference. The model must take one flat float32 input named
// "input" and produce "policy" ([N, actionSize]) and "value" ([N, 1])
// outputs.
type OnnxEvaluator struct {
	session    *ort.DynamicAdvancedSession
	requests   chan onnxRequest
	cfg        OnnxConfig
	inputSize  int
	actionSize int
}

var ortInitOnce sync.Once
var ortInitErr error

// NewOnnxEvaluator loads the model at modelPath for the given game variant.
func NewOnnxEvaluator(modelPath string, g game.Game, cfg OnnxConfig) (*OnnxEvaluator, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	if runtime.GOOS == "linux" {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
	}
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	// One intra-op thread per session: parallelism comes from the search
	// workers, not from the runtime.
	options.SetIntraOpNumThreads(1)
	options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"policy", "value"}, options)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	e := &OnnxEvaluator{
		session:    session,
		requests:   make(chan onnxRequest, cfg.BatchSize*2),
		cfg:        cfg,
		inputSize:  g.EncodedSize(),
		actionSize: g.ActionSize(),
	}
	go e.batchLoop()
	return e, nil
}

func (e *OnnxEvaluator) Close() error {
	return e.session.Destroy()
}

func (e *OnnxEvaluator) Evaluate(state game.State) ([]float32, float32, error) {
	respChan := make(chan onnxResponse, 1)
	e.requests <- onnxRequest{input: state.Encode(), respChan: respChan}
	resp := <-respChan
	return resp.policy, resp.value, resp.err
}

func (e *OnnxEvaluator) batchLoop() {
	batchInput := make([]float32, 0, e.cfg.BatchSize*e.inputSize)
	pending := make([]onnxRequest, 0, e.cfg.BatchSize)

	ticker := time.NewTicker(e.cfg.BatchTimeout)
	defer ticker.Stop()

	for {
		select {
		case req := <-e.requests:
			pending = append(pending, req)
			batchInput = append(batchInput, req.input...)
			if len(pending) >= e.cfg.BatchSize {
				e.runBatch(pending, batchInput)
				pending = pending[:0]
				batchInput = batchInput[:0]
			}
		case <-ticker.C:
			if len(pending) > 0 {
				e.runBatch(pending, batchInput)
				pending = pending[:0]
				batchInput = batchInput[:0]
			}
		}
	}
}

func (e *OnnxEvaluator) runBatch(pending []onnxRequest, batchInput []float32) {
	n := int64(len(pending))

	inputTensor, err := ort.NewTensor(ort.NewShape(n, int64(e.inputSize)), batchInput)
	if err != nil {
		e.failBatch(pending, err)
		return
	}
	defer inputTensor.Destroy()

	policyTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, int64(e.actionSize)))
	if err != nil {
		e.failBatch(pending, err)
		return
	}
	defer policyTensor.Destroy()

	valueTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(n, 1))
	if err != nil {
		e.failBatch(pending, err)
		return
	}
	defer valueTensor.Destroy()

	if err := e.session.Run([]ort.Value{inputTensor}, []ort.Value{policyTensor, valueTensor}); err != nil {
		e.failBatch(pending, err)
		return
	}

	// Exported models emit raw logits; the evaluator contract wants
	// probabilities.
	policyData := policyTensor.GetData()
	valueData := valueTensor.GetData()
	for i, req := range pending {
		policy := softmax(policyData[i*e.actionSize : (i+1)*e.actionSize])
		req.respChan <- onnxResponse{policy: policy, value: valueData[i]}
	}
}

func softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	maxV := logits[0]
	for _, l := range logits[1:] {
		if l > maxV {
			maxV = l
		}
	}
	var sum float32
	for i, l := range logits {
		e := float32(math.Exp(float64(l - maxV)))
		out[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}

func (e *OnnxEvaluator) failBatch(pending []onnxRequest, err error) {
	for _, req := range pending {
		req.respChan <- onnxResponse{err: fmt.Errorf("onnx inference: %w", err)}
	}
}
