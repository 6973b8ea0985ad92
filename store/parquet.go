// Package store persists self-play training examples as parquet batches.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/zeromax/selfplay"
)

// TrainingRow is a single supervised training sample.
//
// Encoding is the raw state tensor the evaluator consumes; trainers can
// reshape it per game. Policy is the normalized search visit distribution
// over the full action space. Value is the outcome target in [-1..1] from
// the perspective of the player to move.
type TrainingRow struct {
	GameID    string    `parquet:"game_id,dict"`
	Ply       int32     `parquet:"ply"`
	Game      string    `parquet:"game,dict"`
	Player    int32     `parquet:"player"`
	Encoding  []float32 `parquet:"encoding"`
	Policy    []float32 `parquet:"policy"`
	Value     float32   `parquet:"value"`
	Source    string    `parquet:"source,dict"`
	ModelPath string    `parquet:"model_path,dict,optional"`
}

// RowsFromRecord flattens a completed self-play game into training rows.
// Incomplete games yield no rows: their values were never assigned.
func RowsFromRecord(rec *selfplay.GameRecord, gameName, modelPath string) []TrainingRow {
	if rec == nil || !rec.Completed {
		return nil
	}
	rows := make([]TrainingRow, 0, len(rec.Examples))
	for ply, ex := range rec.Examples {
		rows = append(rows, TrainingRow{
			GameID:    rec.GameID,
			Ply:       int32(ply),
			Game:      gameName,
			Player:    int32(ex.Player),
			Encoding:  ex.Encoding,
			Policy:    ex.Policy,
			Value:     ex.Value,
			Source:    "selfplay",
			ModelPath: modelPath,
		})
	}
	return rows
}

// WriteBatchParquetAtomic writes rows into a uniquely named parquet file in
// outDir, going through a tmp file and a rename so readers never observe a
// partially written batch. Returns the final path.
func WriteBatchParquetAtomic(outDir string, rows []TrainingRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "training_row_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadBatchParquet loads every row of one batch file, mostly for tests and
// offline inspection.
func ReadBatchParquet(path string) ([]TrainingRow, error) {
	rows, err := parquet.ReadFile[TrainingRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}
