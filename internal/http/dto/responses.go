package dto

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type MailHealthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	EmailServiceReady bool   `json:"email_service_ready"`
}
