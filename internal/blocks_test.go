package internal

import (
	"reflect"
	"strings"
	"testing"
)

func TestMergeContentBlocks(t *testing.T) {
	long1 := strings.Repeat("a", 120)
	long2 := strings.Repeat("b", 120)

	tests := []struct {
		name string
		in   []ContentBlock
		want []ContentBlock
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "multibyte text under the limit joined with space",
			in: []ContentBlock{
				{Kind: BlockText, Content: strings.Repeat("é", 60)},
				{Kind: BlockText, Content: strings.Repeat("ü", 60)},
			},
			want: []ContentBlock{
				{Kind: BlockText, Content: strings.Repeat("é", 60) + " " + strings.Repeat("ü", 60)},
			},
		},
		{
			name: "short text joined with space",
			in: []ContentBlock{
				{Kind: BlockText, Content: "a"},
				{Kind: BlockText, Content: "b"},
				{Kind: BlockToolInvocation, Content: "Ran `ls`"},
				{Kind: BlockText, Content: "c"},
			},
			want: []ContentBlock{
				{Kind: BlockText, Content: "a b"},
				{Kind: BlockToolInvocation, Content: "Ran `ls`"},
				{Kind: BlockText, Content: "c"},
			},
		},
		{
			name: "long fragments get a paragraph break",
			in: []ContentBlock{
				{Kind: BlockText, Content: long1},
				{Kind: BlockText, Content: long2},
			},
			want: []ContentBlock{
				{Kind: BlockText, Content: long1 + "\n\n" + long2},
			},
		},
		{
			name: "thinking merges only with thinking",
			in: []ContentBlock{
				{Kind: BlockThinking, Content: "x", Description: "Planning"},
				{Kind: BlockThinking, Content: "y", Description: "Later"},
				{Kind: BlockText, Content: "z"},
			},
			want: []ContentBlock{
				{Kind: BlockThinking, Content: "x\n\ny", Description: "Planning"},
				{Kind: BlockText, Content: "z"},
			},
		},
		{
			name: "unknown kinds become text",
			in: []ContentBlock{
				{Kind: "markdownContent", Content: "a"},
				{Kind: BlockText, Content: "b"},
			},
			want: []ContentBlock{
				{Kind: BlockText, Content: "a b"},
			},
		},
		{
			name: "standalone kinds never merge",
			in: []ContentBlock{
				{Kind: BlockStatus, Content: "one"},
				{Kind: BlockStatus, Content: "two"},
			},
			want: []ContentBlock{
				{Kind: BlockStatus, Content: "one"},
				{Kind: BlockStatus, Content: "two"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeContentBlocks(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeContentBlocks() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
