// Package sfc splits Vue single-file components into their template,
// script and style blocks.
package sfc

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/uhodav/vuensight/internal/runtime"
)

// Block is one top-level section of a single-file component.
type Block struct {
	Content string
	Lang    string
	Setup   bool
	Attrs   map[string]string
}

// Descriptor holds the top-level blocks of a .vue file.
type Descriptor struct {
	Template *Block
	Scripts  []Block
	Styles   int
}

// Script returns the first non-setup script block, or nil.
func (d *Descriptor) Script() *Block {
	for i := range d.Scripts {
		if !d.Scripts[i].Setup {
			return &d.Scripts[i]
		}
	}
	return nil
}

// ScriptSetup returns the <script setup> block, or nil.
func (d *Descriptor) ScriptSetup() *Block {
	for i := range d.Scripts {
		if d.Scripts[i].Setup {
			return &d.Scripts[i]
		}
	}
	return nil
}

// ScriptLang returns the grammar for the component's script blocks. A
// component mixing languages is parsed with the first block's language.
func (d *Descriptor) ScriptLang() string {
	if len(d.Scripts) == 0 {
		return runtime.ScriptLanguage("")
	}
	return runtime.ScriptLanguage(d.Scripts[0].Lang)
}

var (
	templateOpen  = regexp.MustCompile(`(?i)<template(\s[^>]*)?>`)
	templateClose = regexp.MustCompile(`(?i)</template\s*>`)
	scriptBlock   = regexp.MustCompile(`(?is)<script(\s[^>]*)?>(.*?)</script\s*>`)
	attrPair      = regexp.MustCompile(`([^\s=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+)))?`)
)

// Split parses content as a single-file component. Blocks the HTML grammar
// misses (usually because of error recovery in a complex template) are
// recovered with a textual scan.
func Split(content []byte) *Descriptor {
	d := &Descriptor{}
	if len(content) == 0 {
		return d
	}
	tree, err := runtime.Parse(context.Background(), "vue", content)
	if err == nil {
		d.walk(tree.RootNode(), content)
		tree.Close()
	}
	if d.Template == nil {
		d.Template = scanTemplate(string(content))
	}
	if len(d.Scripts) == 0 {
		d.Scripts = scanScripts(string(content))
	}
	return d
}

func (d *Descriptor) walk(root *sitter.Node, src []byte) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		switch node.Type() {
		case "element":
			start := node.NamedChild(0)
			if start == nil || start.Type() != "start_tag" || d.Template != nil {
				continue
			}
			attrs, tag := readStartTag(start, src)
			if !strings.EqualFold(tag, "template") {
				continue
			}
			end := node.EndByte()
			if last := node.NamedChild(int(node.NamedChildCount()) - 1); last != nil && last.Type() == "end_tag" {
				end = last.StartByte()
			} else {
				// Unclosed at top level: leave it to the textual scan.
				continue
			}
			d.Template = &Block{
				Content: string(src[start.EndByte():end]),
				Lang:    attrs["lang"],
				Attrs:   attrs,
			}
		case "script_element":
			var b Block
			for j := 0; j < int(node.NamedChildCount()); j++ {
				child := node.NamedChild(j)
				switch child.Type() {
				case "start_tag":
					b.Attrs, _ = readStartTag(child, src)
				case "raw_text":
					b.Content = child.Content(src)
				}
			}
			b.Lang = b.Attrs["lang"]
			_, b.Setup = b.Attrs["setup"]
			d.Scripts = append(d.Scripts, b)
		case "style_element":
			d.Styles++
		}
	}
}

func readStartTag(tag *sitter.Node, src []byte) (map[string]string, string) {
	attrs := map[string]string{}
	var name string
	for i := 0; i < int(tag.NamedChildCount()); i++ {
		child := tag.NamedChild(i)
		switch child.Type() {
		case "tag_name":
			name = child.Content(src)
		case "attribute":
			var key, value string
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				switch part.Type() {
				case "attribute_name":
					key = strings.ToLower(part.Content(src))
				case "attribute_value":
					value = part.Content(src)
				case "quoted_attribute_value":
					if part.NamedChildCount() > 0 {
						value = part.NamedChild(0).Content(src)
					}
				}
			}
			if key != "" {
				attrs[key] = value
			}
		}
	}
	return attrs, name
}

// scanTemplate takes everything from the first <template> opening tag to
// the last </template>, so nested templates stay inside.
func scanTemplate(content string) *Block {
	open := templateOpen.FindStringSubmatchIndex(content)
	if open == nil {
		return nil
	}
	closes := templateClose.FindAllStringIndex(content, -1)
	if len(closes) == 0 {
		return nil
	}
	last := closes[len(closes)-1]
	if last[0] < open[1] {
		return nil
	}
	var attrs map[string]string
	if open[2] >= 0 {
		attrs = parseAttrs(content[open[2]:open[3]])
	} else {
		attrs = map[string]string{}
	}
	return &Block{Content: content[open[1]:last[0]], Lang: attrs["lang"], Attrs: attrs}
}

func scanScripts(content string) []Block {
	var blocks []Block
	for _, m := range scriptBlock.FindAllStringSubmatch(content, -1) {
		attrs := parseAttrs(m[1])
		_, setup := attrs["setup"]
		blocks = append(blocks, Block{Content: m[2], Lang: attrs["lang"], Setup: setup, Attrs: attrs})
	}
	return blocks
}

func parseAttrs(s string) map[string]string {
	attrs := map[string]string{}
	for _, m := range attrPair.FindAllStringSubmatch(s, -1) {
		attrs[strings.ToLower(m[1])] = m[2] + m[3] + m[4]
	}
	return attrs
}

// TemplateContent returns the template markup of a component file. Plain
// script modules have no template.
func TemplateContent(fileContent string) (string, bool) {
	if !templateOpen.MatchString(fileContent) {
		return "", false
	}
	d := Split([]byte(fileContent))
	if d.Template == nil {
		return "", false
	}
	return d.Template.Content, true
}

// Extractor adapts TemplateContent to the analyzer's template collaborator.
type Extractor struct{}

func (Extractor) TemplateContent(fileContent string) (string, bool) {
	return TemplateContent(fileContent)
}
