package observe

import (
	"fmt"

	"github.com/owlpinetech/skyview"
)

// Report is the result of one observation.
type Report struct {
	Direction   skyview.Direction         `json:"direction"`
	Resolution  int                       `json:"resolution"`
	Aperture    float64                   `json:"aperture"`
	ZenithPixel int                       `json:"zenithPixel"`
	Projected   skyview.ProjectedLocation `json:"projected"`
	Visibility  skyview.Visibility        `json:"visibility"`
	Place       skyview.PlaceDescription  `json:"place"`
}

// Lines renders the report as the four console lines: place, solid angle, cone angle,
// and surface area.
func (r Report) Lines() []string {
	return []string{
		fmt.Sprintf("Location: %s", r.Place),
		fmt.Sprintf("Solid angle (field of view): %.10g sr", r.Visibility.SolidAngle),
		fmt.Sprintf("Cone angle (angular width): %.10g rad", r.Visibility.ConeAngle),
		fmt.Sprintf("Surface area: %.10g m2", r.Visibility.SurfaceArea),
	}
}
