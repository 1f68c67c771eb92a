package models

// Backend describes a data store the deployment is configured to use.
// It is used for display only; nothing dials it.
type Backend struct {
	Name string `mapstructure:"name" json:"name" yaml:"name"`
	Host string `mapstructure:"host" json:"host" yaml:"host"`
	Port int    `mapstructure:"port" json:"port" yaml:"port"`
}
