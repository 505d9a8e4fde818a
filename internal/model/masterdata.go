package model

type Location struct {
	ID          FlexInt  `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsFreezer   FlexBool `json:"is_freezer"`
}

type QuantityUnit struct {
	ID          FlexInt `json:"id"`
	Name        string  `json:"name"`
	NamePlural  string  `json:"name_plural"`
	Description string  `json:"description"`
}
