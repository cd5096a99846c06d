// Package factory instantiates configuration-selected modules, such as the
// metrics sinks assembled from the `metrics.sinks` list. A module is declared
// by type name plus a map of raw settings; the registered factory decodes the
// settings into its typed config and returns the implementation.
//
// Example:
//
//	reg := factory.NewRegistry[Sink]()
//	reg.Register("influx", func(conf map[string]any) (Sink, error) {
//	    var c struct {
//	        URL string `json:"url"`
//	    }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": u}})
package factory
