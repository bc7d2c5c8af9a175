package assets

import "github.com/spaghettifunk/vesta/engine/assets/loaders"

type Loader interface {
	Load(path string, params interface{}) (*loaders.Resource, error) // `interface{}` here allows loaders to take various parameter types
	Unload(*loaders.Resource) error
}
