package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixChart       CachePrefix = "CHART_"
	CachePrefixPermissions CachePrefix = "PERMCTX_"
)

// Section display locations.
const (
	LocationLeft   = "left"
	LocationCentre = "centre"
	LocationRight  = "right"
)
