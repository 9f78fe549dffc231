package backend

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aura-webinar/client/internal/models"
)

// webinarDTO matches the backend's catalog wire format. The price field is
// historically a string ("0", "499") but newer records send a number; both
// are accepted.
type webinarDTO struct {
	ID        string      `json:"_id"`
	Title     string      `json:"title"`
	Presenter string      `json:"presenter"`
	Date      time.Time   `json:"date"`
	Price     priceAmount `json:"price"`
}

func (d webinarDTO) toModel() models.Webinar {
	return models.Webinar{
		ID:        d.ID,
		Title:     d.Title,
		Presenter: d.Presenter,
		Date:      d.Date,
		Price:     int64(d.Price),
	}
}

// priceAmount decodes a major-unit amount sent as either a JSON string or
// number. Unparseable or negative values decode as an error, not silently as
// zero, so a malformed price can never masquerade as a free webinar.
type priceAmount int64

func (p *priceAmount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q", string(data))
	}
	if n < 0 {
		return fmt.Errorf("negative price %q", string(data))
	}
	*p = priceAmount(n)
	return nil
}
