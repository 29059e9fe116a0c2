// Package registry knows the supported vision models and where their files
// live once downloaded.
package registry

import (
	"fmt"
	"math"
	"strconv"

	"promptstock/pkg/types"
)

// DefaultModelID is the model preselected in settings.
const DefaultModelID = "qwen2.5-vl-7b-q4"

// catalog is ordered smallest to largest.
var catalog = []types.ModelReference{
	{
		ID:          "smolvlm2-2.2b-q4",
		DisplayName: "SmolVLM2 2.2B Q4 (경량)",
		Description: "가볍고 빠른 비전 언어 모델. 한국어 OCR 성능 제한적",
		Weights: types.ModelFile{
			Name: "SmolVLM2-2.2B-Instruct-Q4_K_M.gguf",
			URL:  "https://huggingface.co/ggml-org/SmolVLM2-2.2B-Instruct-GGUF/resolve/main/SmolVLM2-2.2B-Instruct-Q4_K_M.gguf",
			Size: 1_300_000_000,
		},
		Projector: types.ModelFile{
			Name: "mmproj-SmolVLM2-2.2B-Instruct-Q8_0.gguf",
			URL:  "https://huggingface.co/ggml-org/SmolVLM2-2.2B-Instruct-GGUF/resolve/main/mmproj-SmolVLM2-2.2B-Instruct-Q8_0.gguf",
			Size: 600_000_000,
		},
		MinRAMGB:        3,
		AvgImageSeconds: 5,
	},
	{
		ID:          "llava-1.5-7b-q4",
		DisplayName: "LLaVA 1.5 7B Q4 (권장)",
		Description: "우수한 한국어 OCR 성능. SmolVLM2보다 정확한 이미지 분석",
		Weights: types.ModelFile{
			Name: "llava-v1.5-7b-q4_k_m.gguf",
			URL:  "https://huggingface.co/mys/ggml_llava-v1.5-7b/resolve/main/ggml-model-q4_k.gguf",
			Size: 4_200_000_000,
		},
		Projector: types.ModelFile{
			Name: "mmproj-model-f16.gguf",
			URL:  "https://huggingface.co/mys/ggml_llava-v1.5-7b/resolve/main/mmproj-model-f16.gguf",
			Size: 624_000_000,
		},
		MinRAMGB:        4,
		AvgImageSeconds: 8,
	},
	{
		ID:          "llava-1.5-7b-q8",
		DisplayName: "LLaVA 1.5 7B Q8 (고품질)",
		Description: "높은 정확도, 느린 속도. 고성능 디바이스 권장",
		Weights: types.ModelFile{
			Name: "llava-v1.5-7b-q8_0.gguf",
			URL:  "https://huggingface.co/mys/ggml_llava-v1.5-7b/resolve/main/ggml-model-q8_0.gguf",
			Size: 7_800_000_000,
		},
		Projector: types.ModelFile{
			Name: "mmproj-model-f16.gguf",
			URL:  "https://huggingface.co/mys/ggml_llava-v1.5-7b/resolve/main/mmproj-model-f16.gguf",
			Size: 624_000_000,
		},
		MinRAMGB:        6,
		AvgImageSeconds: 12,
	},
	{
		ID:          "qwen2.5-vl-7b-q4",
		DisplayName: "Qwen2.5-VL 7B Q4 (권장)",
		Description: "우수한 다국어 지원. 한국어 이미지 분석 성능 최고",
		Weights: types.ModelFile{
			Name: "Qwen2.5-VL-7B-Instruct-Q4_K_M.gguf",
			URL:  "https://huggingface.co/Mungert/Qwen2.5-VL-7B-Instruct-GGUF/resolve/main/Qwen2.5-VL-7B-Instruct-Q4_K_M.gguf",
			Size: 6_200_000_000,
		},
		Projector: types.ModelFile{
			Name: "Qwen2.5-VL-7B-Instruct-mmproj-f16.gguf",
			URL:  "https://huggingface.co/Mungert/Qwen2.5-VL-7B-Instruct-GGUF/resolve/main/Qwen2.5-VL-7B-Instruct-mmproj-f16.gguf",
			Size: 600_000_000,
		},
		MinRAMGB:        4,
		AvgImageSeconds: 8,
	},
}

// unknownModelError signals an ID outside the catalog.
type unknownModelError struct{ id string }

func (e unknownModelError) Error() string { return "unknown model: " + e.id }

// IsUnknownModel reports whether err names a model outside the catalog.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// Supported returns a copy of the catalog.
func Supported() []types.ModelReference {
	out := make([]types.ModelReference, len(catalog))
	copy(out, catalog)
	return out
}

func Get(id string) (types.ModelReference, error) {
	for _, m := range catalog {
		if m.ID == id {
			return m, nil
		}
	}
	return types.ModelReference{}, unknownModelError{id: id}
}

// TotalSize is the download size of weights plus projector.
func TotalSize(id string) (int64, error) {
	m, err := Get(id)
	if err != nil {
		return 0, err
	}
	return m.Weights.Size + m.Projector.Size, nil
}

// FormatBytes renders n with binary units and at most two decimals.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s %s", strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64), units[i])
}
