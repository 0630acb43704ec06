package jobqueue

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sdraeger/ddalab-core/internal/ddamodel"
	"github.com/sdraeger/ddalab-core/internal/variant"
	"github.com/sdraeger/ddalab-core/pkg/ddaproc"
)

// DDARunner is the production Runner: it invokes the external DDA
// binary once per requested variant, parses its output with the
// variant's column stride, and writes the combined result as a
// MessagePack-encoded ddamodel.AnalysisResult to OutputDir.
type DDARunner struct {
	BinaryPath string
	OutputDir  string
}

func (r *DDARunner) Run(ctx context.Context, job *Job, report func(progress int, message string)) (string, error) {
	params := job.Parameters.Normalize()
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("jobqueue: invalid parameters: %w", err)
	}

	result := ddamodel.AnalysisResult{
		ID:            job.ID,
		OwnerUserID:   job.OwnerUserID,
		FilePath:      job.FileSource.Path,
		Window:        params.Window,
		Delays:        params.Delays,
		VariantResults: make(map[variant.Abbreviation][][]float64),
	}

	total := len(params.Variants)
	for i, v := range params.Variants {
		meta := variant.ByAbbreviation(v)
		if meta == nil {
			return "", fmt.Errorf("jobqueue: unknown variant %q", v)
		}

		variantOutPath := filepath.Join(r.OutputDir, fmt.Sprintf("%s_%s.out", job.ID, v))
		args := buildArgs(params, job.FileSource.Path, variantOutPath, v)

		var stdout bytes.Buffer
		base := i * 100 / total
		runResult, err := ddaproc.Run(ctx, r.BinaryPath, args, &stdout, func(line ddaproc.ProgressLine) {
			if line.Progress >= 0 {
				scaled := base + line.Progress/total
				report(scaled, fmt.Sprintf("running %s", meta.Name))
			} else if line.Status {
				report(base, fmt.Sprintf("%s: %s", meta.Name, line.Raw))
			}
		})
		if err != nil {
			return "", fmt.Errorf("jobqueue: running dda binary for variant %s: %w", v, err)
		}
		if runResult.ExitCode != 0 {
			return "", fmt.Errorf("jobqueue: dda binary exited %d for variant %s: %s", runResult.ExitCode, v, runResult.LastStderr)
		}
		if _, err := os.Stat(variantOutPath); err != nil {
			return "", fmt.Errorf("jobqueue: dda binary produced no output for variant %s: %w", v, err)
		}

		outFile, err := os.Open(variantOutPath)
		if err != nil {
			return "", fmt.Errorf("jobqueue: opening output for variant %s: %w", v, err)
		}
		rows, err := ddamodel.ParseOutput(outFile, meta.Stride)
		outFile.Close()
		if err != nil {
			return "", fmt.Errorf("jobqueue: parsing output for variant %s: %w", v, err)
		}
		q := ddamodel.BuildQMatrix(rows)
		result.VariantResults[v] = q
		if result.Q == nil {
			result.Q = q
		}
	}

	report(100, "writing result")

	outPath := filepath.Join(r.OutputDir, job.ID+".msgpack")
	if err := writeResult(outPath, result); err != nil {
		return "", fmt.Errorf("jobqueue: writing result: %w", err)
	}
	return outPath, nil
}

// writeResult persists a job's analysis result as MessagePack, the
// same encoding internal/snapshot uses for archived results.
func writeResult(path string, result ddamodel.AnalysisResult) error {
	data, err := msgpack.Marshal(&result)
	if err != nil {
		return fmt.Errorf("jobqueue: encoding result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// buildArgs translates normalized request parameters into the DDA
// binary's command-line form, spec §6. The binary writes its result to
// outputPath ("-o") rather than stdout; stdout is log capture only, per
// pkg/ddaproc's doc comment.
func buildArgs(params ddamodel.DDARequest, inputPath, outputPath string, v variant.Abbreviation) []string {
	mask := variant.GenerateSelectMask([]variant.Abbreviation{v})
	args := []string{
		"-i", inputPath,
		"-o", outputPath,
		"-wl", fmt.Sprintf("%v", params.Window.Length),
		"-ws", fmt.Sprintf("%v", params.Window.Step),
	}
	for _, b := range mask {
		args = append(args, "-sel", fmt.Sprintf("%d", b))
	}
	return args
}

func deleteInputFile(path string) error {
	if path == "" {
		return nil
	}
	return os.Remove(path)
}
