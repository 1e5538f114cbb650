package openmeteo

import (
	"strings"

	"github.com/valleyair/district-assistant/internal/core/domain"
)

// The district's jurisdiction: eight San Joaquin Valley counties and their
// incorporated cities plus the larger unincorporated communities.
var valleyCities = map[string]struct{}{}

var valleyCityNames = []string{
	"Fresno", "Bakersfield", "Clovis", "Modesto", "Stockton", "Visalia",
	"Atwater", "Ceres", "Corcoran", "Delano", "Dinuba", "Galt", "Hanford",
	"Lathrop", "Lemoore", "Lodi", "Los Banos", "Madera", "Manteca", "Merced",
	"Oakdale", "Patterson", "Porterville", "Reedley", "Riverbank", "Sanger",
	"Selma", "Shafter", "Tracy", "Tulare", "Turlock", "Wasco",
	"Arvin", "Avenal", "Chowchilla", "Coalinga", "Dos Palos", "Escalon",
	"Exeter", "Farmersville", "Firebaugh", "Fowler", "Gustine", "Hughson",
	"Kerman", "Kettleman City", "Keyes", "Kingsburg", "Lindsay", "Livingston",
	"McFarland", "Mendota", "Newman", "Orange Cove", "Parlier", "Ripon",
	"San Joaquin", "Taft", "Waterford", "Woodlake",
}

var valleyCounties = []string{
	"Fresno County", "Kern County", "Kings County", "Madera County",
	"Merced County", "San Joaquin County", "Stanislaus County", "Tulare County",
}

func init() {
	for _, city := range valleyCityNames {
		valleyCities[city] = struct{}{}
	}
}

// InServiceArea reports whether a geocoded location falls inside the
// district. The geocoder's county names sometimes omit the "County" suffix,
// so county matching tolerates both forms.
func (c *Client) InServiceArea(loc *domain.Location) bool {
	if loc == nil {
		return false
	}

	if _, ok := valleyCities[strings.TrimSpace(loc.City)]; ok {
		return true
	}
	if _, ok := valleyCities[strings.TrimSpace(loc.Name)]; ok {
		return true
	}

	county := strings.TrimSpace(loc.County)
	if county == "" {
		return false
	}
	for _, known := range valleyCounties {
		if county == known || county+" County" == known || strings.HasPrefix(known, county) {
			return true
		}
	}
	return false
}
