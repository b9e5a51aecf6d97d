package dto

type BlockAccountRequest struct {
	UserID  string `json:"userId"`
	Blocked bool   `json:"blocked"`
}

type BlockAccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
