package models

// TreeData is the flat record set of one family tree as returned by a store.
// Version is optional; when empty the graph derives one from the content.
type TreeData struct {
	TreeID        string               `json:"tree_id" yaml:"tree_id"`
	Version       string               `json:"version,omitempty" yaml:"version,omitempty"`
	Persons       []PersonNode         `json:"persons" yaml:"persons"`
	Relationships []StoredRelationship `json:"relationships" yaml:"relationships"`
}
