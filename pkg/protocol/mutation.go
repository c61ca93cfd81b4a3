package protocol

import "fmt"

// MutOp is the type of one native-tree mutation.
type MutOp uint8

const (
	MutCreateElement MutOp = 0x01 // New element node
	MutCreateText    MutOp = 0x02 // New text node
	MutCreateComment MutOp = 0x03 // New comment node
	MutInsert        MutOp = 0x04 // Insert or move a node
	MutRemove        MutOp = 0x05 // Detach a node and its subtree
	MutSetText       MutOp = 0x06 // Replace a node's text content
	MutSetProp       MutOp = 0x07 // Set a node property
	MutRemoveProp    MutOp = 0x08 // Remove a node property
)

// String returns the string representation of the mutation op.
func (op MutOp) String() string {
	switch op {
	case MutCreateElement:
		return "CreateElement"
	case MutCreateText:
		return "CreateText"
	case MutCreateComment:
		return "CreateComment"
	case MutInsert:
		return "Insert"
	case MutRemove:
		return "Remove"
	case MutSetText:
		return "SetText"
	case MutSetProp:
		return "SetProp"
	case MutRemoveProp:
		return "RemoveProp"
	default:
		return "Unknown"
	}
}

// Mutation is a single native-tree operation. Node IDs are
// server-assigned; 0 means "none" (append for Before, root for
// Parent).
type Mutation struct {
	Op     MutOp
	Node   uint64
	Parent uint64 // Insert: target parent
	Before uint64 // Insert: reference sibling, 0 appends
	Tag    string // CreateElement
	Text   string // CreateText/CreateComment/SetText, SetProp value
	Key    string // SetProp/RemoveProp property name
}

// Batch is a sequenced run of mutations; one flush cycle produces one
// batch.
type Batch struct {
	Seq       uint64
	Mutations []Mutation
}

// EncodeBatch encodes a mutation batch payload.
func EncodeBatch(b *Batch) []byte {
	e := NewEncoder()
	e.WriteUvarint(b.Seq)
	e.WriteUvarint(uint64(len(b.Mutations)))
	for i := range b.Mutations {
		encodeMutation(e, &b.Mutations[i])
	}
	return e.Bytes()
}

func encodeMutation(e *Encoder, m *Mutation) {
	e.WriteByte(byte(m.Op))
	e.WriteUvarint(m.Node)

	switch m.Op {
	case MutCreateElement:
		e.WriteString(m.Tag)
	case MutCreateText, MutCreateComment, MutSetText:
		e.WriteString(m.Text)
	case MutInsert:
		e.WriteUvarint(m.Parent)
		e.WriteUvarint(m.Before)
	case MutRemove:
	case MutSetProp:
		e.WriteString(m.Key)
		e.WriteString(m.Text)
	case MutRemoveProp:
		e.WriteString(m.Key)
	}
}

// DecodeBatch decodes a mutation batch payload.
func DecodeBatch(data []byte) (*Batch, error) {
	d := NewDecoder(data)

	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.readCount()
	if err != nil {
		return nil, err
	}

	b := &Batch{Seq: seq, Mutations: make([]Mutation, count)}
	for i := 0; i < count; i++ {
		if err := decodeMutation(d, &b.Mutations[i]); err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
	}
	return b, nil
}

func decodeMutation(d *Decoder, m *Mutation) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	m.Op = MutOp(op)
	if m.Node, err = d.ReadUvarint(); err != nil {
		return err
	}

	switch m.Op {
	case MutCreateElement:
		m.Tag, err = d.ReadString()
	case MutCreateText, MutCreateComment, MutSetText:
		m.Text, err = d.ReadString()
	case MutInsert:
		if m.Parent, err = d.ReadUvarint(); err != nil {
			return err
		}
		m.Before, err = d.ReadUvarint()
	case MutRemove:
	case MutSetProp:
		if m.Key, err = d.ReadString(); err != nil {
			return err
		}
		m.Text, err = d.ReadString()
	case MutRemoveProp:
		m.Key, err = d.ReadString()
	default:
		return fmt.Errorf("protocol: unknown mutation op 0x%02x", op)
	}
	return err
}

// Constructors for the common mutations.

// NewCreateElement builds a create-element mutation.
func NewCreateElement(node uint64, tag string) Mutation {
	return Mutation{Op: MutCreateElement, Node: node, Tag: tag}
}

// NewCreateText builds a create-text mutation.
func NewCreateText(node uint64, text string) Mutation {
	return Mutation{Op: MutCreateText, Node: node, Text: text}
}

// NewCreateComment builds a create-comment mutation.
func NewCreateComment(node uint64, text string) Mutation {
	return Mutation{Op: MutCreateComment, Node: node, Text: text}
}

// NewInsert builds an insert mutation. before 0 appends.
func NewInsert(node, parent, before uint64) Mutation {
	return Mutation{Op: MutInsert, Node: node, Parent: parent, Before: before}
}

// NewRemove builds a remove mutation.
func NewRemove(node uint64) Mutation {
	return Mutation{Op: MutRemove, Node: node}
}

// NewSetText builds a set-text mutation.
func NewSetText(node uint64, text string) Mutation {
	return Mutation{Op: MutSetText, Node: node, Text: text}
}

// NewSetProp builds a set-property mutation.
func NewSetProp(node uint64, key, value string) Mutation {
	return Mutation{Op: MutSetProp, Node: node, Key: key, Text: value}
}

// NewRemoveProp builds a remove-property mutation.
func NewRemoveProp(node uint64, key string) Mutation {
	return Mutation{Op: MutRemoveProp, Node: node, Key: key}
}
