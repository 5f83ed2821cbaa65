package facade

import (
	"github.com/jo-hoe/gopix/internal/backend/imagingbackend"
	"github.com/jo-hoe/gopix/internal/imagekit"
)

func init() {
	Register(Backend{
		Name:     imagingbackend.Name,
		Priority: 10,
		Probe:    imagingbackend.Probe,
		Open: func(path string, caps imagekit.Capabilities) (imagekit.Adapter, error) {
			a, err := imagingbackend.Load(path, caps)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
		OpenBytes: func(data []byte, caps imagekit.Capabilities) (imagekit.Adapter, error) {
			a, err := imagingbackend.LoadBytes(data, caps)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	})
}
