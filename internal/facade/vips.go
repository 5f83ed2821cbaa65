//go:build vips

package facade

import (
	"github.com/jo-hoe/gopix/internal/backend/vipsbackend"
	"github.com/jo-hoe/gopix/internal/imagekit"
)

func init() {
	Register(Backend{
		Name:     vipsbackend.Name,
		Priority: 20,
		Probe:    vipsbackend.Probe,
		Open: func(path string, caps imagekit.Capabilities) (imagekit.Adapter, error) {
			a, err := vipsbackend.Load(path, caps)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
		OpenBytes: func(data []byte, caps imagekit.Capabilities) (imagekit.Adapter, error) {
			a, err := vipsbackend.LoadBytes(data, caps)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	})
}
