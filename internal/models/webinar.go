package models

import "time"

// Webinar is one offerable webinar from the upstream catalog. It is created
// and updated by the catalog service; this gateway only reads it.
type Webinar struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Presenter string    `json:"presenter"`
	Date      time.Time `json:"date"`
	// Price in major currency units (whole rupees); zero denotes free.
	Price int64 `json:"price"`
}

// Free reports whether the webinar requires no payment.
func (w Webinar) Free() bool {
	return w.Price == 0
}
