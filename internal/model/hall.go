package model

// HallLayout is the extent of the seating chart as currently stored:
// the highest row and the highest seat number present.  The front-end
// uses it to draw the grid.
type HallLayout struct {
	Rows  int `json:"rows" db:"max_row"`
	Seats int `json:"seats" db:"max_number"`
}
