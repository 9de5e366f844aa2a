package dto

// ActionResult envoltura uniforme de todas las respuestas de la API.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// OK respuesta exitosa con datos.
func OK(data any) ActionResult {
	return ActionResult{Success: true, Data: data}
}

// OKMessage respuesta exitosa con mensaje para el operador.
func OKMessage(msg string, data any) ActionResult {
	return ActionResult{Success: true, Message: msg, Data: data}
}

// Fail respuesta de error.
func Fail(msg string) ActionResult {
	return ActionResult{Success: false, Error: msg}
}

// FailCode respuesta de error con código legible por máquina (MISSING_TOKEN, FORBIDDEN, ...).
func FailCode(code, msg string) ActionResult {
	return ActionResult{Success: false, Error: msg, Code: code}
}
