package models

import "digital-surveyor/pkg/geometry"

// InferenceDetection детекция в ответе сервиса инференса
type InferenceDetection struct {
	Box        []float64 `json:"box"`        // [x1, y1, x2, y2]
	Label      string    `json:"label"`      // Метка класса
	Confidence float64   `json:"confidence"` // Уверенность 0..1
}

// DetectResponse ответ сервиса инференса на запрос детекции
type DetectResponse struct {
	Model      string               `json:"model"`
	Detections []InferenceDetection `json:"detections"`
}

// DepthResponse ответ сервиса инференса на запрос карты глубины
type DepthResponse struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Depth  [][]float64 `json:"depth"`
}

// ToDetections переводит ответ в детекции, пропуская рамки без четырех координат
func (r DetectResponse) ToDetections() []Detection {
	out := make([]Detection, 0, len(r.Detections))
	for _, d := range r.Detections {
		box, ok := geometry.FromSlice(d.Box)
		if !ok {
			continue
		}
		out = append(out, Detection{Box: box, Label: d.Label, Confidence: d.Confidence})
	}
	return out
}
