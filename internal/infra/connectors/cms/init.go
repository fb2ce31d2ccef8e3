package cms

import (
	"github.com/complykit/privacy-comply/internal/domain/connectors"
)

func init() {
	connectors.Default().MustRegister("cms", func(settings connectors.Settings) (connectors.Connector, error) {
		return New(settings)
	})
}

// compile-time capability checks
var (
	_ connectors.Connector           = (*Connector)(nil)
	_ connectors.CMSScanner          = (*Connector)(nil)
	_ connectors.ConfigValidator     = (*Connector)(nil)
	_ connectors.LifecycleController = (*Connector)(nil)
	_ connectors.AuditTracker        = (*Connector)(nil)
)
