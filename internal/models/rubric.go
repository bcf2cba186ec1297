package models

type RubricSection struct {
	Code         string   `db:"code" yaml:"code" json:"code"`
	Name         string   `db:"name" yaml:"name" json:"name"`
	DisplayOrder int      `db:"display_order" yaml:"order" json:"display_order"`
	Weight       float64  `db:"weight" yaml:"weight" json:"weight"`
	Aliases      []string `db:"-" yaml:"aliases" json:"aliases,omitempty"`
}
