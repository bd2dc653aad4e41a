package model

// Service is read-mostly catalog data describing a bookable lab test.
type Service struct {
	Base
	Name     string  `db:"name" json:"name"`
	Category string  `db:"category" json:"category"`
	Price    float64 `db:"price" json:"price"`
	Active   bool    `db:"active" json:"active"`
}

type CreateServiceRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
}

type UpdateServiceRequest struct {
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty" binding:"omitempty,gte=0"`
	Active   *bool    `json:"active,omitempty"`
}
