package billing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan describes a paid tier as configured on the payment provider.
// ProviderPlanCode must match the provider's plan code so webhook events can
// be mapped back to a billing cycle without an extra provider round-trip.
type Plan struct {
	Code             string       `yaml:"code"`
	Name             string       `yaml:"name"`
	ProviderPlanCode string       `yaml:"provider_plan_code"`
	Cycle            BillingCycle `yaml:"cycle"`
	Amount           int64        `yaml:"amount"`
	Currency         string       `yaml:"currency"`
}

// Catalog resolves provider plan codes to plan definitions.
type Catalog struct {
	byProviderCode map[string]Plan
}

// NewCatalog builds a catalog from plan definitions.
// Returns ErrInvalidPlanConfiguration for duplicate provider codes or
// unsupported billing cycles so misconfiguration fails at startup.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	byCode := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		if plan.ProviderPlanCode == "" {
			return nil, fmt.Errorf("%w: plan %q has no provider plan code", ErrInvalidPlanConfiguration, plan.Code)
		}
		if !plan.Cycle.Valid() {
			return nil, fmt.Errorf("%w: plan %q has unsupported cycle %q", ErrInvalidPlanConfiguration, plan.Code, plan.Cycle)
		}
		if _, exists := byCode[plan.ProviderPlanCode]; exists {
			return nil, fmt.Errorf("%w: duplicate provider plan code %q", ErrInvalidPlanConfiguration, plan.ProviderPlanCode)
		}
		byCode[plan.ProviderPlanCode] = plan
	}
	return &Catalog{byProviderCode: byCode}, nil
}

// LoadCatalogFile reads plan definitions from a YAML file.
//
// Example:
//
//	plans:
//	  - code: pro-monthly
//	    name: Pro (monthly)
//	    provider_plan_code: PLN_x9a72kd01
//	    cycle: monthly
//	    amount: 500
//	    currency: USD
func LoadCatalogFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlanConfiguration, err)
	}

	var file struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlanConfiguration, err)
	}
	if len(file.Plans) == 0 {
		return nil, fmt.Errorf("%w: no plans defined in %s", ErrInvalidPlanConfiguration, path)
	}
	return NewCatalog(file.Plans...)
}

// Lookup returns the plan for a provider plan code.
func (c *Catalog) Lookup(providerPlanCode string) (Plan, error) {
	plan, ok := c.byProviderCode[providerPlanCode]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// CycleFor returns the billing cycle for a provider plan code, falling back
// to monthly for unknown codes. Webhooks may reference plans created directly
// in the provider dashboard; defaulting keeps those deliveries processable.
func (c *Catalog) CycleFor(providerPlanCode string) BillingCycle {
	if plan, ok := c.byProviderCode[providerPlanCode]; ok {
		return plan.Cycle
	}
	return CycleMonthly
}
