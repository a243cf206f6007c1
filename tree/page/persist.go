package page

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/joshuapare/treekit/internal/encoding"
	"github.com/joshuapare/treekit/tree"
	"github.com/joshuapare/treekit/tree/deweyid"
)

// revisionsFile is the append-only snapshot log inside the resource
// directory. Each committed revision is one zstd-compressed JSON frame
// with a little-endian uint32 length prefix. A full snapshot per
// revision keeps recovery trivial: the newest frame alone restores the
// head, older frames restore any revision.
const revisionsFile = "revisions.dat"

// Shared codec state, both safe for concurrent use and expensive to
// construct.
var (
	snapshotEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	snapshotDecoder, _ = zstd.NewReader(nil)
)

// recordDTO is the serialized form of any node record, tagged by kind.
type recordDTO struct {
	Kind            tree.Kind `json:"kind"`
	NodeKey         int64     `json:"nodeKey"`
	ParentKey       int64     `json:"parentKey"`
	Hash            int64     `json:"hash,omitempty"`
	DeweyID         []uint32  `json:"deweyID,omitempty"`
	FirstChildKey   int64     `json:"firstChildKey,omitempty"`
	LeftSiblingKey  int64     `json:"leftSiblingKey,omitempty"`
	RightSiblingKey int64     `json:"rightSiblingKey,omitempty"`
	ChildCount      uint64    `json:"childCount,omitempty"`
	DescendantCount uint64    `json:"descendantCount,omitempty"`
	PrefixKey       int32     `json:"prefixKey,omitempty"`
	LocalNameKey    int32     `json:"localNameKey,omitempty"`
	URIKey          int32     `json:"uriKey,omitempty"`
	PathNodeKey     int64     `json:"pathNodeKey,omitempty"`
	Value           []byte    `json:"value,omitempty"`
	AttributeKeys   []int64   `json:"attributeKeys,omitempty"`
	AttributeNames  []int64   `json:"attributeNames,omitempty"`
	NamespaceKeys   []int64   `json:"namespaceKeys,omitempty"`
}

// nameDTO is the serialized form of one dictionary entry.
type nameDTO struct {
	Key  int32     `json:"key"`
	Name string    `json:"name"`
	Kind tree.Kind `json:"kind"`
	Refs int       `json:"refs"`
}

// snapshotDTO is the serialized form of one committed revision.
type snapshotDTO struct {
	Revision   uint32      `json:"revision"`
	MaxNodeKey int64       `json:"maxNodeKey"`
	Bootstrap  bool        `json:"bootstrap,omitempty"`
	Meta       CommitMeta  `json:"meta"`
	Records    []recordDTO `json:"records"`
	Names      []nameDTO   `json:"names"`
}

func encodeRecord(n tree.Node) recordDTO {
	dto := recordDTO{
		Kind:      n.Kind(),
		NodeKey:   n.NodeKey(),
		ParentKey: n.ParentKey(),
		Hash:      n.Hash(),
	}
	if id := n.DeweyID(); id != nil {
		dto.DeweyID = id.Divisions()
	}
	if sn, ok := n.(tree.StructuralNode); ok {
		dto.FirstChildKey = sn.FirstChildKey()
		dto.LeftSiblingKey = sn.LeftSiblingKey()
		dto.RightSiblingKey = sn.RightSiblingKey()
		dto.ChildCount = sn.ChildCount()
		dto.DescendantCount = sn.DescendantCount()
	}
	if nn, ok := n.(tree.NamedNode); ok {
		dto.PrefixKey = nn.PrefixKey()
		dto.LocalNameKey = nn.LocalNameKey()
		dto.URIKey = nn.URIKey()
		dto.PathNodeKey = nn.PathNodeKey()
	}
	if vn, ok := n.(tree.ValuedNode); ok {
		dto.Value = vn.Value()
	}
	if el, ok := n.(*tree.ElementNode); ok {
		for i := 0; i < el.AttributeCount(); i++ {
			dto.AttributeKeys = append(dto.AttributeKeys, el.AttributeKey(i))
		}
		dto.AttributeNames = el.PackedAttributeNames()
		for i := 0; i < el.NamespaceCount(); i++ {
			dto.NamespaceKeys = append(dto.NamespaceKeys, el.NamespaceKey(i))
		}
	}
	return dto
}

func decodeRecord(dto recordDTO) (tree.Node, error) {
	var id *deweyid.ID
	if dto.DeweyID != nil {
		id = deweyid.FromDivisions(dto.DeweyID)
	}
	var n tree.Node
	switch dto.Kind {
	case tree.KindDocumentRoot:
		root := tree.NewDocumentRootNode(id)
		root.SetFirstChildKey(dto.FirstChildKey)
		root.SetDescendantCount(dto.DescendantCount)
		root.SetChildCount(dto.ChildCount)
		n = root
	case tree.KindElement:
		el := tree.NewElementNode(dto.NodeKey, dto.ParentKey, dto.LeftSiblingKey,
			dto.RightSiblingKey, dto.PrefixKey, dto.LocalNameKey, dto.URIKey,
			dto.PathNodeKey, id)
		el.SetFirstChildKey(dto.FirstChildKey)
		el.SetDescendantCount(dto.DescendantCount)
		el.SetChildCount(dto.ChildCount)
		for i, key := range dto.AttributeKeys {
			el.InsertAttribute(key, dto.AttributeNames[i])
		}
		for _, key := range dto.NamespaceKeys {
			el.InsertNamespace(key)
		}
		n = el
	case tree.KindAttribute:
		n = tree.NewAttributeNode(dto.NodeKey, dto.ParentKey, dto.PrefixKey,
			dto.LocalNameKey, dto.URIKey, dto.Value, false, dto.PathNodeKey, id)
	case tree.KindNamespace:
		n = tree.NewNamespaceNode(dto.NodeKey, dto.ParentKey, dto.PrefixKey,
			dto.LocalNameKey, dto.URIKey, dto.PathNodeKey, id)
	case tree.KindText:
		t := tree.NewTextNode(dto.NodeKey, dto.ParentKey, dto.LeftSiblingKey,
			dto.RightSiblingKey, dto.Value, false, id)
		t.SetFirstChildKey(dto.FirstChildKey)
		t.SetDescendantCount(dto.DescendantCount)
		n = t
	case tree.KindComment:
		c := tree.NewCommentNode(dto.NodeKey, dto.ParentKey, dto.LeftSiblingKey,
			dto.RightSiblingKey, dto.Value, false, id)
		c.SetFirstChildKey(dto.FirstChildKey)
		c.SetDescendantCount(dto.DescendantCount)
		n = c
	case tree.KindProcessingInstruction:
		p := tree.NewPINode(dto.NodeKey, dto.ParentKey, dto.LeftSiblingKey,
			dto.RightSiblingKey, dto.PrefixKey, dto.LocalNameKey, dto.URIKey,
			dto.Value, false, dto.PathNodeKey, id)
		p.SetFirstChildKey(dto.FirstChildKey)
		p.SetDescendantCount(dto.DescendantCount)
		n = p
	default:
		return nil, fmt.Errorf("%w: unknown record kind %d", ErrSnapshotCorrupt, dto.Kind)
	}
	n.SetHash(dto.Hash)
	return n, nil
}

// appendSnapshot serializes one revision and appends it to the log.
func appendSnapshot(dir string, u *UberPage) error {
	dto := snapshotDTO{
		Revision:   u.revision,
		MaxNodeKey: u.maxNodeKey,
		Bootstrap:  u.bootstrap,
		Meta:       u.meta,
	}
	for _, p := range u.pages {
		for _, n := range p.records {
			dto.Records = append(dto.Records, encodeRecord(n))
		}
	}
	for key, e := range u.names.entries {
		dto.Names = append(dto.Names, nameDTO{Key: key, Name: e.name, Kind: e.kind, Refs: e.refs})
	}

	raw, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	frame := snapshotEncoder.EncodeAll(raw, make([]byte, 4, len(raw)/2+4))
	encoding.PutU32(frame, 0, uint32(len(frame)-4))

	f, err := os.OpenFile(filepath.Join(dir, revisionsFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(frame); err != nil {
		return err
	}
	return f.Sync()
}

// loadRevisions reads every snapshot frame back into uber pages. A
// missing file yields an empty slice.
func loadRevisions(dir string) ([]*UberPage, error) {
	data, err := os.ReadFile(filepath.Join(dir, revisionsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*UberPage
	for off := 0; off < len(data); {
		if off+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated frame header", ErrSnapshotCorrupt)
		}
		size := int(encoding.ReadU32(data, off))
		off += 4
		if off+size > len(data) {
			return nil, fmt.Errorf("%w: truncated frame", ErrSnapshotCorrupt)
		}
		raw, err := snapshotDecoder.DecodeAll(data[off:off+size], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrSnapshotCorrupt, err)
		}
		off += size

		u, err := decodeSnapshot(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func decodeSnapshot(raw []byte) (*UberPage, error) {
	var dto snapshotDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("%w: json: %w", ErrSnapshotCorrupt, err)
	}
	if dto.Meta.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing commit id", ErrSnapshotCorrupt)
	}

	u := &UberPage{
		revision:   dto.Revision,
		maxNodeKey: dto.MaxNodeKey,
		bootstrap:  dto.Bootstrap,
		meta:       dto.Meta,
		pages:      make(map[int64]*RecordPage),
		names:      NewNameDictionary(),
	}
	for _, rec := range dto.Records {
		n, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		pageNo := pageNoForKey(n.NodeKey())
		p, ok := u.pages[pageNo]
		if !ok {
			p = newRecordPage(pageNo)
			u.pages[pageNo] = p
		}
		p.put(n)
	}
	for _, ne := range dto.Names {
		u.names.entries[ne.Key] = &nameEntry{name: ne.Name, kind: ne.Kind, refs: ne.Refs}
	}
	return u, nil
}
