// Package depth запускает модель глубины Depth Anything в процессе через ONNX Runtime.
package depth

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"digital-surveyor/pkg/models"
)

// DefaultInputSize сторона квадратного входа Depth Anything
const DefaultInputSize = 518

// ortEnv глобальная инициализация ONNX Runtime (одна на процесс)
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXEstimator модель глубины в процессе
type ONNXEstimator struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inputSize  int
	mu         sync.Mutex
	logger     *logrus.Logger
}

// NewONNXEstimator загружает модель и создает сессию
func NewONNXEstimator(modelPath, libPath string, logger *logrus.Logger) (*ONNXEstimator, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model must have at least one input and one output")
	}

	size := DefaultInputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 {
		size = int(dims[2])
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"model":      modelPath,
		"input":      inputs[0].Name,
		"output":     outputs[0].Name,
		"input_size": size,
	}).Info("Модель глубины загружена")

	return &ONNXEstimator{
		session:    session,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		inputSize:  size,
		logger:     logger,
	}, nil
}

// EstimateDepth строит карту глубины фрагмента размером inputSize×inputSize
func (e *ONNXEstimator) EstimateDepth(ctx context.Context, crop image.Image) (models.DepthMap, error) {
	if crop == nil || crop.Bounds().Empty() {
		return nil, fmt.Errorf("onnx: empty crop")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := int64(e.inputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 3, n, n), Preprocess(crop, e.inputSize))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, n, n))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	e.mu.Lock()
	err = e.session.Run([]ort.Value{input}, []ort.Value{output})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	return ToDepthMap(output.GetData(), e.inputSize, e.inputSize)
}

// Close освобождает сессию
func (e *ONNXEstimator) Close() error {
	return e.session.Destroy()
}
