package config

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

const exampleConfig = `# sitegen configuration
source:
  root: ./src
  includes_dir: includes
  # exclude:
  #   - "**/drafts/**"

output:
  directory: ./public
  clean: true

markdown:
  enabled: true
  title: My Site

sitemap:
  enabled: false
  # base_url: https://example.com

server:
  port: 8080
  live_reload: true
  # rebuild_interval: 10m

# events:
#   url: nats://localhost:4222
#   subject: sitegen.builds

# history:
#   path: ./.sitegen/history.db
`

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath))
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		return errors.FileSystem("write", configPath, err)
	}
	return nil
}
