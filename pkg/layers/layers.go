// Package layers provides the seabed-habitat map layer catalog used as the
// spatial backdrop of an assessment. Layers come from the EMODnet WMS
// GetCapabilities document; when the service is unreachable the built-in
// defaults keep the catalog usable offline.
package layers

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ecorisk/bowtie/pkg/logging"
)

// DefaultBaseURL is the EMODnet seabed habitats WMS endpoint.
const DefaultBaseURL = "https://ows.emodnet-seabedhabitats.eu/geoserver/emodnet_view/wms"

// wmsVersion is used for GetCapabilities requests.
const wmsVersion = "1.3.0"

// maxLayers caps how many layers one capabilities fetch yields.
const maxLayers = 20

// Layer is one catalog entry.
type Layer struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DefaultLayers are the verified EMODnet layers served when the live
// capabilities document cannot be fetched.
var DefaultLayers = []Layer{
	{Name: "all_eusm2021", Title: "EUSeaMap 2021 - All Habitats", Description: "Broad-scale seabed habitat map for Europe"},
	{Name: "be_eusm2021", Title: "EUSeaMap 2021 - Benthic Habitats", Description: "Benthic broad-scale habitat map"},
	{Name: "ospar_threatened", Title: "OSPAR Threatened Habitats", Description: "OSPAR threatened and/or declining habitats"},
	{Name: "substrate", Title: "Seabed Substrate", Description: "Seabed substrate types"},
	{Name: "confidence", Title: "Confidence Assessment", Description: "Confidence in habitat predictions"},
	{Name: "annexiMaps_all", Title: "Annex I Habitats", Description: "Habitats Directive Annex I habitat types"},
}

// Catalog fetches and caches the layer list.
type Catalog struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewCatalog creates a catalog against the given WMS base URL. Empty means
// the EMODnet default.
func NewCatalog(baseURL string, logger logging.Logger) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Catalog{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// capabilities mirrors the fragment of the WMS capabilities document the
// catalog reads. Element names match after namespace stripping.
type capabilities struct {
	Layers []capLayer `xml:"Capability>Layer>Layer"`
}

type capLayer struct {
	Name     string `xml:"Name"`
	Title    string `xml:"Title"`
	Abstract string `xml:"Abstract"`
}

// Available returns the live layer list, falling back to DefaultLayers on
// any fetch or parse failure.
func (c *Catalog) Available(ctx context.Context) []Layer {
	layers, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("capabilities fetch failed, serving defaults",
			logging.Error(err))
		return DefaultLayers
	}
	if len(layers) == 0 {
		return DefaultLayers
	}
	return layers
}

func (c *Catalog) fetch(ctx context.Context) ([]Layer, error) {
	q := url.Values{}
	q.Set("service", "WMS")
	q.Set("version", wmsVersion)
	q.Set("request", "GetCapabilities")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capabilities request returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return parseCapabilities(body)
}

func parseCapabilities(data []byte) ([]Layer, error) {
	// Tag names carry no namespace, so matching is on local names only;
	// that sidesteps the WMS namespace soup.
	var caps capabilities
	if err := xml.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("parse capabilities: %w", err)
	}

	var layers []Layer
	for _, l := range caps.Layers {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		// Workspace-prefixed names duplicate the plain entries.
		if strings.Contains(name, ":") {
			continue
		}
		title := strings.TrimSpace(l.Title)
		if title == "" {
			title = name
		}
		layers = append(layers, Layer{
			Name:        name,
			Title:       title,
			Description: strings.TrimSpace(l.Abstract),
		})
		if len(layers) >= maxLayers {
			break
		}
	}
	return layers, nil
}

// LegendURL builds the GetLegendGraphic URL for a layer.
func (c *Catalog) LegendURL(layerName string) string {
	q := url.Values{}
	q.Set("service", "WMS")
	q.Set("version", "1.1.0")
	q.Set("request", "GetLegendGraphic")
	q.Set("layer", layerName)
	q.Set("format", "image/png")
	return c.baseURL + "?" + q.Encode()
}
