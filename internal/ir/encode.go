package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Interchange format: an inspectable, persistable snapshot of a
// lowered module. Map keys serialize sorted, so identical modules
// always encode to byte-identical output.

type moduleHeader struct {
	ID         string            `json:"id"`
	Source     string            `json:"source,omitempty"`
	Directives []string          `json:"directives,omitempty"`
	Body       []NodeID          `json:"body"`
	Exports    map[string]NodeID `json:"exports,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type nodeRecord struct {
	Kind string          `json:"kind"`
	Node json.RawMessage `json:"node"`
}

type interchange struct {
	SchemaVersion string                `json:"schemaVersion"`
	Module        moduleHeader          `json:"module"`
	Nodes         map[string]nodeRecord `json:"nodes"`
	CFGs          map[string]*CFG       `json:"controlFlowGraphs,omitempty"`
}

// EncodeModule serializes a module to the interchange format.
func EncodeModule(m *Module) ([]byte, error) {
	out := interchange{
		SchemaVersion: SchemaVersion,
		Module: moduleHeader{
			ID:         m.ID,
			Source:     m.SourceName,
			Directives: m.Directives,
			Body:       m.Body,
			Exports:    m.Exports,
			Metadata:   m.Metadata,
		},
		Nodes: make(map[string]nodeRecord, len(m.Nodes)),
		CFGs:  make(map[string]*CFG, len(m.CFGs)),
	}

	for _, id := range m.SortedNodeIDs() {
		n := m.Nodes[id]
		raw, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("encode node %d: %w", id, err)
		}
		out.Nodes[strconv.FormatUint(uint64(id), 10)] = nodeRecord{
			Kind: n.Kind().String(),
			Node: raw,
		}
	}
	for fn, cfg := range m.CFGs {
		out.CFGs[strconv.FormatUint(uint64(fn), 10)] = cfg
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecodeModule reconstructs a module from the interchange format.
func DecodeModule(data []byte) (*Module, error) {
	var in interchange
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode interchange: %w", err)
	}
	if in.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %q (want %q)", in.SchemaVersion, SchemaVersion)
	}

	m := NewModule(in.Module.ID, 0)
	m.SourceName = in.Module.Source
	m.Directives = in.Module.Directives
	m.Body = in.Module.Body
	if in.Module.Exports != nil {
		m.Exports = in.Module.Exports
	}
	m.Metadata = in.Module.Metadata

	var maxID NodeID
	for key, rec := range in.Nodes {
		id64, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad node id %q: %w", key, err)
		}
		n, err := decodeNode(rec)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", key, err)
		}
		if n.ID() != NodeID(id64) {
			return nil, fmt.Errorf("node %s: id mismatch (record says %d)", key, n.ID())
		}
		m.Nodes[n.ID()] = n
		if n.ID() > maxID {
			maxID = n.ID()
		}
	}
	// resume the id counter past every decoded node
	m.gen = NewIDGen(uint32(maxID))

	for key, cfg := range in.CFGs {
		id64, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad function id %q: %w", key, err)
		}
		m.CFGs[NodeID(id64)] = cfg
	}
	return m, nil
}

func decodeNode(rec nodeRecord) (Node, error) {
	kind, ok := KindFromName(rec.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", rec.Kind)
	}

	var n Node
	switch kind {
	case KindVarDecl:
		n = &VarDecl{}
	case KindParam:
		n = &Param{}
	case KindFuncDecl:
		n = &FuncDecl{}
	case KindTypeDecl:
		n = &TypeDecl{}
	case KindBlock:
		n = &Block{}
	case KindExprStmt:
		n = &ExprStmt{}
	case KindIf:
		n = &If{}
	case KindWhile:
		n = &While{}
	case KindIterLoop:
		n = &IterLoop{}
	case KindSwitch:
		n = &Switch{}
	case KindCase:
		n = &Case{}
	case KindTry:
		n = &Try{}
	case KindBreak:
		n = &Break{}
	case KindContinue:
		n = &Continue{}
	case KindReturn:
		n = &Return{}
	case KindThrow:
		n = &Throw{}
	case KindAssign:
		n = &Assign{}
	case KindIdent:
		n = &Ident{}
	case KindLiteral:
		n = &Literal{}
	case KindTemplate:
		n = &Template{}
	case KindBinary:
		n = &Binary{}
	case KindLogical:
		n = &Logical{}
	case KindUnary:
		n = &Unary{}
	case KindCond:
		n = &Cond{}
	case KindCall:
		n = &Call{}
	case KindNew:
		n = &New{}
	case KindMember:
		n = &Member{}
	case KindIndex:
		n = &Index{}
	case KindElem:
		n = &Elem{}
	case KindRestSlice:
		n = &RestSlice{}
	case KindRestProps:
		n = &RestProps{}
	case KindArrayLit:
		n = &ArrayLit{}
	case KindObjectLit:
		n = &ObjectLit{}
	case KindProperty:
		n = &Property{}
	case KindSpread:
		n = &Spread{}
	case KindFuncLit:
		n = &FuncLit{}
	case KindAwait:
		n = &Await{}
	case KindYield:
		n = &Yield{}
	case KindArrayPattern:
		n = &ArrayPattern{}
	case KindObjectPattern:
		n = &ObjectPattern{}
	case KindAssignPattern:
		n = &AssignPattern{}
	default:
		return nil, fmt.Errorf("kind %q has no decoder", rec.Kind)
	}

	if err := json.Unmarshal(rec.Node, n); err != nil {
		return nil, err
	}
	return n, nil
}
