package synthesis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/poluce/clawdbot-feishu/internal/config"
)

var latinRunPattern = regexp.MustCompile(`[A-Za-z]{2,}`)

// modelFiles are the on-disk pieces the engine needs for one voice.
type modelFiles struct {
	Name        string
	Dir         string
	Model       string
	Lexicon     string
	Tokens      string
	LengthScale float64
}

func (m modelFiles) engineArgs(output string, text string) []string {
	return []string{
		"--vits-model=" + m.Model,
		"--vits-lexicon=" + m.Lexicon,
		"--vits-tokens=" + m.Tokens,
		"--vits-length-scale=" + strconv.FormatFloat(m.LengthScale, 'f', -1, 64),
		"--output-filename=" + output,
		text,
	}
}

// selectModel picks the mixed-language voice when text contains a run of
// two or more Latin letters.
func selectModel(models config.ModelsConfig, text string) config.VoiceModel {
	if latinRunPattern.MatchString(text) {
		return models.Mixed
	}
	return models.Primary
}

func modelDir(modelsDir string, name string) string {
	return filepath.Join(config.ExpandUserPath(modelsDir), name)
}

// resolveModelFiles locates model.onnx (or the first *.onnx), lexicon.txt
// and tokens.txt inside the model directory.
func resolveModelFiles(modelsDir string, model config.VoiceModel) (modelFiles, error) {
	dir := modelDir(modelsDir, model.Name)
	info, err := os.Stat(dir)
	if err != nil {
		return modelFiles{}, fmt.Errorf("model %q: %w", model.Name, err)
	}
	if !info.IsDir() {
		return modelFiles{}, fmt.Errorf("model %q: %s is not a directory", model.Name, dir)
	}

	onnx := filepath.Join(dir, "model.onnx")
	if _, err := os.Stat(onnx); err != nil {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.onnx"))
		if len(matches) == 0 {
			return modelFiles{}, fmt.Errorf("model %q: no .onnx file in %s", model.Name, dir)
		}
		sort.Strings(matches)
		onnx = matches[0]
	}

	scale := model.LengthScale
	if scale <= 0 {
		scale = 1.0
	}
	return modelFiles{
		Name:        model.Name,
		Dir:         dir,
		Model:       onnx,
		Lexicon:     filepath.Join(dir, "lexicon.txt"),
		Tokens:      filepath.Join(dir, "tokens.txt"),
		LengthScale: scale,
	}, nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New(path + " is not a directory")
	}
	return nil
}
