package tree

import "errors"

var (
	// ErrNodeNotFound indicates an id that is not part of the tree.
	ErrNodeNotFound = errors.New("tree: node not found")

	// ErrNotGroup indicates a group operation on a node that is not a logical group.
	ErrNotGroup = errors.New("tree: node is not a logical group")

	// ErrNotOptional indicates an optional-attribute edit on a non-optional node.
	ErrNotOptional = errors.New("tree: node is not an optional wrapper")

	// ErrRootNode indicates an attempt to remove or ungroup a node the tree cannot
	// exist without: the root group or a collection's element group.
	ErrRootNode = errors.New("tree: node cannot be detached")

	// ErrTemplateNotInScope indicates a template that is not offered by the target group.
	ErrTemplateNotInScope = errors.New("tree: template not available in this group")
)
