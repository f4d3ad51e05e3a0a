package billing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wavsocial/wavscan/svc/user"
)

//go:embed plans.yaml
var defaultPlansYAML []byte

// PlanSpec is one catalog entry: a provider price mapped onto a local tier
// and its usage limits.
type PlanSpec struct {
	Plan             user.Plan `yaml:"plan"`
	PriceID          string    `yaml:"price_id"`
	MonthlyScanLimit int       `yaml:"monthly_scan_limit"`
}

// Catalog maps provider price ids onto plans and carries per-plan limits.
type Catalog struct {
	byPrice map[string]PlanSpec
	byPlan  map[user.Plan]PlanSpec
}

type catalogFile struct {
	Plans []PlanSpec `yaml:"plans"`
}

// DefaultCatalog loads the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultPlansYAML)
}

// ParseCatalog builds a catalog from YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("billing: parse plan catalog: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("billing: plan catalog is empty")
	}

	c := &Catalog{
		byPrice: make(map[string]PlanSpec, len(file.Plans)),
		byPlan:  make(map[user.Plan]PlanSpec, len(file.Plans)),
	}
	for _, spec := range file.Plans {
		if !spec.Plan.Valid() {
			return nil, fmt.Errorf("billing: unknown plan %q in catalog", spec.Plan)
		}
		if _, dup := c.byPlan[spec.Plan]; dup {
			return nil, fmt.Errorf("billing: duplicate plan %q in catalog", spec.Plan)
		}
		c.byPlan[spec.Plan] = spec
		if spec.PriceID != "" {
			if _, dup := c.byPrice[spec.PriceID]; dup {
				return nil, fmt.Errorf("billing: duplicate price %q in catalog", spec.PriceID)
			}
			c.byPrice[spec.PriceID] = spec
		}
	}
	return c, nil
}

// PlanByPriceID resolves a provider price id onto a local tier.
func (c *Catalog) PlanByPriceID(priceID string) (user.Plan, error) {
	spec, ok := c.byPrice[priceID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrice, priceID)
	}
	return spec.Plan, nil
}

// ScanLimit returns the plan's monthly scan allowance. Unknown plans get the
// free tier's limit.
func (c *Catalog) ScanLimit(plan user.Plan) int {
	if spec, ok := c.byPlan[plan]; ok {
		return spec.MonthlyScanLimit
	}
	return c.byPlan[user.PlanFree].MonthlyScanLimit
}

// PriceID returns the provider price for a paid plan, or "" for free.
func (c *Catalog) PriceID(plan user.Plan) string {
	return c.byPlan[plan].PriceID
}
