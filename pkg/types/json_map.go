package types

// JSONMap is a free-form jsonb payload column.
type JSONMap map[string]any
