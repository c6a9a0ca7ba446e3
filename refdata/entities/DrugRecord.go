package entities

// DrugRecord is one generic drug with the surface forms it can appear under on a package.
type DrugRecord struct {
	GenericName  string   `json:"generic_name" yaml:"generic_name"`
	BrandNames   []string `json:"brand_names" yaml:"brand_names"`
	Misspellings []string `json:"common_misspellings" yaml:"common_misspellings"`
}
