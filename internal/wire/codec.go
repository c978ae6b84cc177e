// Package wire decodes and encodes the two JSON records the fabric
// exchanges through the coordinator tree: service manifests and listen
// advertisements. The schema is an external contract shared with every
// process on the tree, so this package is a thin validating shim over
// encoding/json rather than a hand-rolled parser.
package wire

import (
	"encoding/json"

	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/types"
)

// DecodeServiceCfg parses a /services/<srvtype> manifest body. Malformed
// JSON or a missing name is logged at warn and reported as !ok, never as
// an error return, since callers treat it as "config not usable yet"
// rather than a fatal condition.
func DecodeServiceCfg(log logging.Logger, buf []byte) (types.ServiceCfg, bool) {
	var cfg types.ServiceCfg
	if err := json.Unmarshal(buf, &cfg); err != nil {
		log.Warnf("wire: invalid service manifest: %v", err)
		return types.ServiceCfg{}, false
	}
	if cfg.Name == "" {
		log.Warnf("wire: service manifest missing name")
		return types.ServiceCfg{}, false
	}
	return cfg, true
}

// DecodeListenRecord parses a /listen/<fullname>/<seq> advertisement
// body. Unknown fields are ignored by encoding/json already; a record
// missing any of type/ztype/url is dropped.
func DecodeListenRecord(log logging.Logger, buf []byte) (types.ListenRecord, bool) {
	var rec types.ListenRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		log.Warnf("wire: invalid listen record: %v", err)
		return types.ListenRecord{}, false
	}
	if rec.Type == "" || rec.Kind == "" || rec.URL == "" {
		log.Warnf("wire: listen record missing required field: %+v", rec)
		return types.ListenRecord{}, false
	}
	return rec, true
}

// EncodeListenRecord renders a ListenRecord for publication. Marshaling a
// well-formed ListenRecord never fails, so the error is swallowed here.
func EncodeListenRecord(rec types.ListenRecord) []byte {
	data, _ := json.Marshal(rec)
	return data
}
