package cmd

import (
	"github.com/spf13/viper"

	"github.com/bmlt-enabled/mayo-server/internal/utils"
	"github.com/bmlt-enabled/mayo-server/pkg/aggregate"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
	"github.com/bmlt-enabled/mayo-server/pkg/storage"
)

// buildPipeline wires the local store, configured remote peers and the
// optional BMLT directory into an aggregation pipeline.
func buildPipeline(db *storage.DB) (*aggregate.Pipeline, *sources.Directory) {
	siteURL := viper.GetString("site_url")

	var remoteCfgs []sources.RemoteConfig
	if err := viper.UnmarshalKey("sources", &remoteCfgs); err != nil {
		utils.Log.Warn("Invalid sources config: ", err)
	}

	var external []sources.Fetcher
	for _, rc := range remoteCfgs {
		if !rc.Enabled {
			continue
		}
		external = append(external, sources.NewRemote(rc))
	}

	var dir *sources.Directory
	if root := viper.GetString("bmlt.root_server"); root != "" {
		dir = sources.NewDirectory(viper.GetString("bmlt.id"), viper.GetString("bmlt.name"), root)
		external = append(external, dir)
	}

	p := &aggregate.Pipeline{
		Local:    &sources.Local{DB: db, SiteURL: siteURL},
		External: external,
		Log:      utils.Log,
	}
	if dir != nil {
		p.ResolveNames = dir.NameMap
	}
	return p, dir
}
