// Package all registers every built-in connector. Import it for side
// effects from the binary that needs the full set.
package all

import (
	// trigger init() registration
	_ "github.com/complykit/privacy-comply/internal/infra/connectors/cloudstorage"
	_ "github.com/complykit/privacy-comply/internal/infra/connectors/cms"
	_ "github.com/complykit/privacy-comply/internal/infra/connectors/crm"
	_ "github.com/complykit/privacy-comply/internal/infra/connectors/mailbox"
)
