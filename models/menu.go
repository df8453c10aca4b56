package models

type MenuItem struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Tag   string `json:"tag,omitempty"` // main-dish subset: plancha, ahumado, domingo, normal
}

// Menu is the full catalog snapshot served to the conversation engine.
type Menu struct {
	Mains  []MenuItem
	Snacks []MenuItem
	Drinks []MenuItem
}

const (
	TagGrilled = "plancha"
	TagSmoked  = "ahumado"
	TagSunday  = "domingo"
	TagPlain   = "normal"
)

const (
	CategoryMain  = "main"
	CategorySnack = "snack"
	CategoryDrink = "drink"
)
