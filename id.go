package oracle

import "github.com/xraph/oracle/id"

// ID is the primary identifier type for all Oracle entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
