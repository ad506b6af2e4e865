package agent

import (
	"fmt"
	"reflect"
)

// ConfigList represents a list of agent Configs of a single Type.
//
// Instead of storing a slice of Configs, a ConfigList stores a slice
// of settings for each Config field. A list with field slices of
// lengths len_1, len_2, ..., len_N therefore encodes
// len_1 * len_2 * ... * len_N separate Configs, one per combination
// of settings, using far less memory than the equivalent []Config.
// This is the on-disk format for hyperparameter sweeps.
type ConfigList interface {
	// Config returns an empty Config of the same type as those stored
	// by the ConfigList
	Config() Config

	// Type returns the type of agent Config stored in the list
	Type() Type

	// Len returns the number of Configs encoded by the list
	Len() int
}

// ConfigAt returns the Config at index i in the ConfigList.
//
// The index is treated as a mixed radix number whose j'th digit
// indexes the slice of settings for the j'th field of the list. Every
// exported field of the concrete ConfigList must be a slice and must
// share its name with a field of the list's Config type. Config fields
// with no same-named list field are left at their zero value.
//
// ConfigAt panics if the list is malformed or i is out of range, since
// both indicate programming errors in the agent package that declared
// the list.
func ConfigAt(i int, list ConfigList) Config {
	if i < 0 || i >= list.Len() {
		panic(fmt.Sprintf("configAt: index %v out of range for list of "+
			"length %v", i, list.Len()))
	}

	listValue := reflect.ValueOf(list)
	listType := listValue.Type()

	configValue := reflect.New(reflect.TypeOf(list.Config())).Elem()

	for j := 0; j < listValue.NumField(); j++ {
		settings := listValue.Field(j)
		if settings.Kind() != reflect.Slice {
			panic(fmt.Sprintf("configAt: non-slice field %v in %T",
				listType.Field(j).Name, list))
		}

		field := configValue.FieldByName(listType.Field(j).Name)
		if !field.IsValid() {
			panic(fmt.Sprintf("configAt: no field %v in %T",
				listType.Field(j).Name, list.Config()))
		}

		field.Set(settings.Index(i % settings.Len()))
		i /= settings.Len()
	}

	return configValue.Interface().(Config)
}
