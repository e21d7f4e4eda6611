// Package uptrace_client exports corecaller spans to Uptrace.
package uptrace_client

import (
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"

	"github.com/InjectiveLabs/corecaller"
)

var _ corecaller.ExporterInitFn = InitExporter

func InitExporter(cfg *corecaller.Config) corecaller.ExporterShutdownFn {
	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.CollectorDSN), // or use UPTRACE_DSN env var
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.EnvName),
		uptrace.WithResourceAttributes(attribute.String("deployment.cluster_id", cfg.ClusterID)),
	)

	return uptrace.Shutdown
}
