package fleet

import "github.com/ukydev/fleet-maintenance/internal/scheduling"

// Policy collects the business rules that differ between deployments.
type Policy struct {
	// CloseAllPendingWorkOnAnyService closes every open pending item of a vehicle
	// whenever a job card is recorded for it. When false only items whose title or
	// description mentions a performed service are closed.
	CloseAllPendingWorkOnAnyService bool `yaml:"close_all_pending_work_on_any_service"`
	// StrictStock rejects consumption beyond stock on hand unless the request
	// explicitly allows the shortage. Stock never goes negative either way.
	StrictStock bool `yaml:"strict_stock"`
	// LowStockThreshold is the exclusive upper bound for low-stock notifications.
	LowStockThreshold int `yaml:"low_stock_threshold"`

	Scheduling scheduling.Policy `yaml:",inline"`
}

// DefaultPolicy matches the behaviour operators already rely on.
func DefaultPolicy() Policy {
	return Policy{
		CloseAllPendingWorkOnAnyService: true,
		StrictStock:                     false,
		LowStockThreshold:               10,
		Scheduling:                      scheduling.DefaultPolicy(),
	}
}
