package internal

import (
	"strings"
	"unicode/utf8"
)

// standaloneKinds are block kinds that are always emitted on their own
var standaloneKinds = map[string]bool{
	BlockToolInvocation: true,
	BlockStatus:         true,
	BlockAskUser:        true,
	BlockIntent:         true,
	BlockSkill:          true,
}

// longFragment is the length in characters above which two adjacent text fragments get a paragraph break
const longFragment = 100

// MergeContentBlocks collapses consecutive text fragments into runs.
// Standalone kinds flush the pending run and are emitted as-is, thinking
// fragments merge only with thinking, and every other kind becomes text.
func MergeContentBlocks(blocks []ContentBlock) []ContentBlock {
	if len(blocks) == 0 {
		return nil
	}

	var (
		merged      []ContentBlock
		currentKind string
		parts       []string
		description string
	)

	flush := func() {
		if len(parts) > 0 {
			kind := currentKind
			if kind == "" {
				kind = BlockText
			}
			merged = append(merged, ContentBlock{Kind: kind, Content: strings.Join(parts, ""), Description: description})
		}
		parts = nil
		currentKind = ""
		description = ""
	}

	for _, b := range blocks {
		switch {
		case standaloneKinds[b.Kind]:
			flush()
			merged = append(merged, b)
		case b.Kind == BlockThinking:
			if currentKind == BlockThinking {
				parts = append(parts, "\n\n", b.Content)
				if description == "" {
					description = b.Description
				}
				continue
			}
			flush()
			currentKind = BlockThinking
			parts = []string{b.Content}
			description = b.Description
		default:
			if currentKind == BlockText {
				if utf8.RuneCountInString(parts[len(parts)-1]) > longFragment && utf8.RuneCountInString(b.Content) > longFragment {
					parts = append(parts, "\n\n")
				} else {
					parts = append(parts, " ")
				}
				parts = append(parts, b.Content)
				continue
			}
			flush()
			currentKind = BlockText
			parts = []string{b.Content}
		}
	}
	flush()

	return merged
}
