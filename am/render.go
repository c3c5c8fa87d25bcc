package am

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// RenderTOML encodes the effective configuration in am.toml form.
func RenderTOML(c *Config) ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render config as TOML")
	}
	return out, nil
}
