package setcardactive

type Input struct {
	UserID int64 `json:"userId" validate:"required,gte=1"`
	CardID int64 `json:"cardId" validate:"required,gte=1"`
	Active *bool `json:"active" validate:"required"`
}

type Output struct {
	CardID int64 `json:"cardId"`
	Active bool  `json:"active"`
}
