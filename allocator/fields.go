package allocator

// Log field names used by the arena.
const (
	FieldComponent = "component"
	FieldBase      = "base"
	FieldSpan      = "span"
	FieldCapacity  = "capacity"
	FieldAllocated = "allocated"
	FieldFree      = "free"
	FieldAddr      = "addr"
	FieldOffset    = "offset"
	FieldSize      = "size"
	FieldRequested = "requested"
	FieldRegions   = "free_regions"
	FieldBlocks    = "blocks"
)
