package workflow

const (
	defaultGeminiTemperature = float32(0.2)
)
