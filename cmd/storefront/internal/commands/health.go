package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/storefront/internal/client"
)

type HealthCmd struct {
	Wait time.Duration `help:"Keep retrying for up to this long, e.g. 30s"`
}

func (c *HealthCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	var status client.HealthStatus
	if c.Wait > 0 {
		status, err = a.client.WaitHealthy(ctx, c.Wait)
	} else {
		status, err = a.client.HealthCheck(ctx)
	}
	if err != nil {
		return apiError("check health", err)
	}

	fmt.Fprintf(a.out, "API is healthy: %s", status.Message)
	if status.Date != "" {
		fmt.Fprintf(a.out, " (%s)", status.Date)
	}
	fmt.Fprintln(a.out)

	return nil
}
