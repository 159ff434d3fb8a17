package handler

// dataResponse wraps successful auth payloads as {"data": ...}.
type dataResponse struct {
	Data any `json:"data"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=50"`
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
