// Package all registers every snapshot store backend. Blank-import it from
// binaries; config selects which backend actually runs.
package all

import (
	_ "github.com/b33n-tech/club-suite-quest/internal/store/file"
	_ "github.com/b33n-tech/club-suite-quest/internal/store/mssql"
	_ "github.com/b33n-tech/club-suite-quest/internal/store/postgres"
	_ "github.com/b33n-tech/club-suite-quest/internal/store/sqlite"
)
