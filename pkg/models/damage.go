package models

import "digital-surveyor/pkg/geometry"

// Detection одна рамка от внешнего детектора
type Detection struct {
	Box        geometry.Box `json:"box"`        // Рамка в пикселях изображения
	Label      string       `json:"label"`      // Сырая метка класса
	Confidence float64      `json:"confidence"` // Уверенность детектора 0..1
}

// DepthMap попиксельная карта глубины фрагмента (масштаб задает модель)
type DepthMap [][]float64

// AnalyzeRequest запрос на оценку повреждений по одному снимку
type AnalyzeRequest struct {
	ImageData []byte `json:"-"`        // Данные изображения (не сериализуем в JSON)
	Filename  string `json:"filename"` // Имя загруженного файла
	UserID    string `json:"user_id"`  // Владелец скана
	CarName   string `json:"car_name"` // Марка и модель автомобиля
}

// VehicleInfo сведения об автомобиле в отчете
type VehicleInfo struct {
	CarName         string  `json:"car_name"`
	IsLuxury        bool    `json:"is_luxury"`
	PriceMultiplier float64 `json:"price_multiplier"`
}

// Refinement результат уточнения по трем ракурсам
type Refinement struct {
	SeverityScores []int    `json:"severity_scores"`
	FinalSeverity  int      `json:"final_severity"`
	Confidence     string   `json:"confidence"`
	StdDeviation   float64  `json:"std_deviation"`
	CloseupURLs    []string `json:"closeup_urls,omitempty"`
}

// DamageReport одно повреждение в отчете
type DamageReport struct {
	ID         string       `json:"id,omitempty"`
	Type       string       `json:"type"`                 // Скорректированный тип повреждения
	RawLabel   string       `json:"raw_label"`            // Исходная метка детектора
	Part       string       `json:"part"`                 // Деталь кузова
	Severity   int          `json:"severity"`             // Тяжесть 0..100
	Action     string       `json:"action"`               // Рекомендуемая работа
	Cost       float64      `json:"cost"`                 // Стоимость с учетом множителя
	Box        geometry.Box `json:"box"`                  // Рамка повреждения
	Confidence float64      `json:"confidence"`           // Уверенность детектора
	HeatmapURL string       `json:"heatmap,omitempty"`    // Тепловая карта глубины
	Status     string       `json:"status"`               // preliminary или verified
	Refinement *Refinement  `json:"refinement,omitempty"` // Данные уточнения
}

// AnalyzeResponse ответ на запрос оценки
type AnalyzeResponse struct {
	Status            string         `json:"status"`                   // success или rejected
	Message           string         `json:"message"`                  // Сообщение о результате
	QualityIssue      string         `json:"quality_issue,omitempty"`  // Причина отклонения снимка
	ScanID            string         `json:"scan_id,omitempty"`        // ID сохраненного скана
	Strategy          string         `json:"strategy,omitempty"`       // Набор правил оценки
	Damages           []DamageReport `json:"damages"`                  // Найденные повреждения
	TotalCost         float64        `json:"total_cost"`               // Итоговая стоимость
	Currency          string         `json:"currency,omitempty"`       // Валюта
	VehicleInfo       *VehicleInfo   `json:"vehicle_info,omitempty"`   // Автомобиль
	OriginalImageURL  string         `json:"original_image_url,omitempty"`
	ProcessedImageURL string         `json:"processed_image_url,omitempty"`
	HeatmapImageURL   string         `json:"heatmap_image_url,omitempty"`
}

// RefineImage один снимок крупного плана
type RefineImage struct {
	Data     []byte
	Filename string
}

// RefineRequest запрос на уточнение повреждения по трем ракурсам
type RefineRequest struct {
	DamageID   string         `json:"damage_id"`
	PartName   string         `json:"part_name,omitempty"`   // Переопределяет деталь из записи
	DamageType string         `json:"damage_type,omitempty"` // Переопределяет тип из записи
	Images     [3]RefineImage `json:"-"`                     // Левый, центральный, правый ракурсы
}

// RefineResponse итог уточнения
type RefineResponse struct {
	Status         string   `json:"status"`
	DamageID       string   `json:"damage_id"`
	SeverityScores []int    `json:"severity_scores"`
	FinalSeverity  int      `json:"final_severity"`
	Action         string   `json:"action"`
	Cost           float64  `json:"cost"`
	Currency       string   `json:"currency"`
	Confidence     string   `json:"confidence"`
	StdDeviation   float64  `json:"std_deviation"`
	CloseupURLs    []string `json:"closeup_urls"`
}

// HealthResponse представляет ответ проверки здоровья сервиса
type HealthResponse struct {
	Status      string `json:"status"`       // Статус сервиса (healthy/unhealthy)
	ModelLoaded bool   `json:"model_loaded"` // Загружены ли модели
	Version     string `json:"version"`      // Версия сервиса
}
