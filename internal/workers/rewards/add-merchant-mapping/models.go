package addmerchantmapping

import "rewards-strategist/internal/models"

type Input struct {
	Merchant   string  `json:"merchant" validate:"required,notblank,max=200"`
	Category   string  `json:"category" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type Output struct {
	Mapping models.MerchantMapping `json:"mapping"`
}
