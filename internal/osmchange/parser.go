package osmchange

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/multierr"

	"github.com/wegman-software/osm2geojson-go/internal/locations"
	"github.com/wegman-software/osm2geojson-go/internal/source"
)

// Parser parses OSC (OSM Change) files
type Parser struct {
	stats Stats
}

// NewParser creates a new OSC parser
func NewParser() *Parser {
	return &Parser{}
}

// Stats returns parsing statistics. Only valid once the change channel
// has been drained.
func (p *Parser) Stats() Stats {
	return p.stats
}

// ParseFile parses an OSC file and streams changes to a channel. The
// compression is taken from the file name (.gz, .bz2, .zst).
func (p *Parser) ParseFile(ctx context.Context, filename string) (<-chan Change, <-chan error) {
	changes := make(chan Change, 1000)
	errChan := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errChan)

		if err := p.parseFile(ctx, filename, changes); err != nil {
			errChan <- err
		}
	}()

	return changes, errChan
}

func (p *Parser) parseFile(ctx context.Context, filename string, changes chan<- Change) (err error) {
	format, compression, err := source.DetectFormat(filename)
	if err != nil {
		return err
	}
	if format != source.FormatXML {
		return fmt.Errorf("%w: OsmChange files are XML: %s", source.ErrUnknownFormat, filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open OSC file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	r, dec, err := source.Decompress(f, compression)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dec.Close())
	}()

	return p.parse(ctx, r, changes)
}

// ParseReader parses uncompressed OSC data from a reader
func (p *Parser) ParseReader(ctx context.Context, reader io.Reader) (<-chan Change, <-chan error) {
	changes := make(chan Change, 1000)
	errChan := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errChan)

		if err := p.parse(ctx, reader, changes); err != nil {
			errChan <- err
		}
	}()

	return changes, errChan
}

// parse performs the actual XML parsing
func (p *Parser) parse(ctx context.Context, reader io.Reader, changes chan<- Change) error {
	decoder := xml.NewDecoder(reader)
	var currentAction Action

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("XML parse error: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		var change Change
		switch se.Name.Local {
		case "create":
			currentAction = ActionCreate
			continue
		case "modify":
			currentAction = ActionModify
			continue
		case "delete":
			currentAction = ActionDelete
			continue
		case "node", "way", "relation":
			if currentAction == "" {
				return fmt.Errorf("XML parse error: %s %s outside of create, modify or delete",
					se.Name.Local, attrValue(se, "id"))
			}
			change, err = parseElement(decoder, se)
			if err != nil {
				return err
			}
			change.Action = currentAction
		default:
			continue
		}

		select {
		case changes <- change:
			p.stats.add(change)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// element collects the attributes and children of one node, way or relation
type element struct {
	id        int64
	version   int
	changeset int64
	timestamp time.Time
	user      string
	uid       int64
	lat, lon  float64
	hasLat    bool
	hasLon    bool
	tags      osm.Tags
	nodes     osm.WayNodes
	members   osm.Members
}

// parseElement reads one element up to its end tag
func parseElement(decoder *xml.Decoder, start xml.StartElement) (Change, error) {
	var e element
	if err := e.attributes(start); err != nil {
		return Change{}, err
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return Change{}, fmt.Errorf("XML parse error in %s %d: %w", start.Name.Local, e.id, err)
		}

		switch se := token.(type) {
		case xml.StartElement:
			if err := e.child(se); err != nil {
				return Change{}, fmt.Errorf("%s %d: %w", start.Name.Local, e.id, err)
			}
		case xml.EndElement:
			if se.Name.Local == start.Name.Local {
				return e.change(start.Name.Local), nil
			}
		}
	}
}

func (e *element) attributes(start xml.StartElement) error {
	var err error
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			e.id, err = strconv.ParseInt(attr.Value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s id %q: %w", start.Name.Local, attr.Value, err)
			}
		case "lat":
			e.lat, err = strconv.ParseFloat(attr.Value, 64)
			if err != nil {
				return fmt.Errorf("invalid lat %q: %w", attr.Value, err)
			}
			e.hasLat = true
		case "lon":
			e.lon, err = strconv.ParseFloat(attr.Value, 64)
			if err != nil {
				return fmt.Errorf("invalid lon %q: %w", attr.Value, err)
			}
			e.hasLon = true
		case "version":
			e.version, _ = strconv.Atoi(attr.Value)
		case "changeset":
			e.changeset, _ = strconv.ParseInt(attr.Value, 10, 64)
		case "timestamp":
			e.timestamp, _ = time.Parse(time.RFC3339, attr.Value)
		case "user":
			e.user = attr.Value
		case "uid":
			e.uid, _ = strconv.ParseInt(attr.Value, 10, 64)
		}
	}
	return nil
}

func (e *element) child(se xml.StartElement) error {
	switch se.Name.Local {
	case "tag":
		if k := attrValue(se, "k"); k != "" {
			e.tags = append(e.tags, osm.Tag{Key: k, Value: attrValue(se, "v")})
		}
	case "nd":
		ref, err := strconv.ParseInt(attrValue(se, "ref"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid node ref: %w", err)
		}
		e.nodes = append(e.nodes, osm.WayNode{ID: osm.NodeID(ref)})
	case "member":
		ref, err := strconv.ParseInt(attrValue(se, "ref"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid member ref: %w", err)
		}
		e.members = append(e.members, osm.Member{
			Type: osm.Type(attrValue(se, "type")),
			Ref:  ref,
			Role: attrValue(se, "role"),
		})
	}
	return nil
}

func (e *element) change(name string) Change {
	c := Change{Location: locations.Undefined}
	switch name {
	case "node":
		c.Node = &osm.Node{
			ID:          osm.NodeID(e.id),
			Lat:         e.lat,
			Lon:         e.lon,
			Version:     e.version,
			ChangesetID: osm.ChangesetID(e.changeset),
			Timestamp:   e.timestamp,
			User:        e.user,
			UserID:      osm.UserID(e.uid),
			Tags:        e.tags,
		}
		if e.hasLat && e.hasLon {
			c.Location = locations.FromLatLon(e.lat, e.lon)
		}
	case "way":
		c.Way = &osm.Way{
			ID:          osm.WayID(e.id),
			Version:     e.version,
			ChangesetID: osm.ChangesetID(e.changeset),
			Timestamp:   e.timestamp,
			User:        e.user,
			UserID:      osm.UserID(e.uid),
			Tags:        e.tags,
			Nodes:       e.nodes,
		}
	case "relation":
		c.Relation = &osm.Relation{
			ID:          osm.RelationID(e.id),
			Version:     e.version,
			ChangesetID: osm.ChangesetID(e.changeset),
			Timestamp:   e.timestamp,
			User:        e.user,
			UserID:      osm.UserID(e.uid),
			Tags:        e.tags,
			Members:     e.members,
		}
	}
	return c
}

func attrValue(se xml.StartElement, name string) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}
