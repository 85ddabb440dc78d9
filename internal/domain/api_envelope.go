package domain

// Общий конверт ответа API. Списки ходят своим конвертом (ListEnvelope),
// всё остальное — этим.
type APIEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Утилиты для сборки конвертов
func OkData(data any) APIEnvelope   { return APIEnvelope{Success: true, Data: data} }
func Fail(text string) APIEnvelope  { return APIEnvelope{Success: false, Error: text} }
