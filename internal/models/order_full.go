package models

// OrderFull — ордер с развёрнутыми связями для выдачи наружу.
type OrderFull struct {
	Order
	Item   Item `json:"item"`
	Buyer  User `json:"buyer"`
	Seller User `json:"seller"`
}
