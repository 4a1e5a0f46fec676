package layout

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrBadLayerFile is returned when a layer properties file cannot be used.
var ErrBadLayerFile = errors.New("bad layer properties file")

// LayerInfo is a physical layer in the target technology.
type LayerInfo struct {
	Name     string `json:"name"`
	Layer    int    `json:"layer"`
	Datatype int    `json:"datatype"`
	Color    string `json:"color"`
}

func (l LayerInfo) String() string {
	return fmt.Sprintf("%s %d/%d", l.Name, l.Layer, l.Datatype)
}

// LayerMap maps semantic tags to physical layers.
type LayerMap map[Layer]LayerInfo

// Technology layer names used by the EBeam PDK for each tag.
var ebeamNames = map[Layer]string{
	LayerSiCore:      "Si",
	LayerPinRec:      "PinRec",
	LayerDevRec:      "DevRec",
	LayerRib:         "Si - 90 nm rib",
	LayerHeater:      "M1_heater",
	LayerRouter:      "M2_router",
	LayerPinRecMetal: "PinRecM",
}

// DefaultLayerMap returns the EBeam layer assignments.
func DefaultLayerMap() LayerMap {
	return LayerMap{
		LayerSiCore:      {Name: "Si", Layer: 1, Datatype: 0, Color: "#ff80a8"},
		LayerPinRec:      {Name: "PinRec", Layer: 1, Datatype: 10, Color: "#00ffff"},
		LayerDevRec:      {Name: "DevRec", Layer: 68, Datatype: 0, Color: "#004080"},
		LayerRib:         {Name: "Si - 90 nm rib", Layer: 2, Datatype: 0, Color: "#80a8ff"},
		LayerHeater:      {Name: "M1_heater", Layer: 47, Datatype: 0, Color: "#ebc634"},
		LayerRouter:      {Name: "M2_router", Layer: 45, Datatype: 0, Color: "#90705b"},
		LayerPinRecMetal: {Name: "PinRecM", Layer: 1, Datatype: 11, Color: "#00ff80"},
	}
}

// Lookup returns the physical layer of tag, falling back to the EBeam
// defaults.
func (m LayerMap) Lookup(tag Layer) LayerInfo {
	if info, ok := m[tag]; ok {
		return info
	}
	return DefaultLayerMap()[tag]
}

type lypProperties struct {
	Name      string `xml:"name"`
	Source    string `xml:"source"`
	FillColor string `xml:"fill-color"`
}

type lypFile struct {
	XMLName    xml.Name        `xml:"layer-properties"`
	Properties []lypProperties `xml:"properties"`
}

// LoadLayerMap reads a KLayout .lyp file. Layers are matched to tags by
// their EBeam technology name; tags missing from the file keep the default
// assignment.
func LoadLayerMap(path string) (LayerMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLayerMap(f)
}

// ParseLayerMap is LoadLayerMap on an open stream.
func ParseLayerMap(r io.Reader) (LayerMap, error) {
	var doc lypFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadLayerFile, err)
	}

	byName := make(map[string]Layer, len(ebeamNames))
	for tag, name := range ebeamNames {
		byName[name] = tag
	}

	m := DefaultLayerMap()
	for _, p := range doc.Properties {
		// Names are often written as "Si 1/0"; the source is authoritative.
		name := strings.TrimSpace(p.Name)
		if i := strings.LastIndexByte(name, ' '); i > 0 && strings.Contains(name[i:], "/") {
			name = strings.TrimSpace(name[:i])
		}
		tag, ok := byName[name]
		if !ok {
			continue
		}
		layer, datatype, err := parseSource(p.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %q: %v", ErrBadLayerFile, p.Name, err)
		}
		info := LayerInfo{Name: name, Layer: layer, Datatype: datatype, Color: m[tag].Color}
		if p.FillColor != "" {
			info.Color = p.FillColor
		}
		m[tag] = info
	}
	return m, nil
}

// parseSource reads "layer/datatype@cellview".
func parseSource(src string) (int, int, error) {
	src, _, _ = strings.Cut(strings.TrimSpace(src), "@")
	l, d, ok := strings.Cut(src, "/")
	if !ok {
		return 0, 0, fmt.Errorf("source %q is not layer/datatype", src)
	}
	layer, err := strconv.Atoi(l)
	if err != nil {
		return 0, 0, fmt.Errorf("source %q: %v", src, err)
	}
	datatype, err := strconv.Atoi(d)
	if err != nil {
		return 0, 0, fmt.Errorf("source %q: %v", src, err)
	}
	return layer, datatype, nil
}
