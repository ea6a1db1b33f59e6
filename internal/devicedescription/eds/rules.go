/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package eds

import (
	"fmt"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// RootName is the synthetic root of the comparable EDS tree.
const RootName = "EDS"

// sectionOrder is the canonical section order of an EDS. Sections not listed
// here are kept verbatim and stay behind the section that preceded them.
var sectionOrder = []string{
	"File",
	"Device",
	"Device Classification",
	"Params",
	"Groups",
	"Assembly",
	"Connection Manager",
	"Port",
	"Capacity",
	"Connection Configuration",
	"Identity Class",
	"Message Router Class",
	"Connection Manager Class",
	"Port Class",
	"TCP/IP Interface Class",
	"Ethernet Link Class",
	"QoS Class",
	"DLR Class",
	"LLDP Management Class",
	"Time Sync Class",
}

func sectionRank(name string) (int, bool) {
	for i, s := range sectionOrder {
		if strings.EqualFold(s, name) {
			return i, true
		}
	}
	return 0, false
}

func sectionKind(name string) model.FieldKind {
	if strings.HasSuffix(strings.ToLower(name), " class") {
		return model.KindNetworkClass
	}
	return model.KindSection
}

// canonicalKey maps numbered keys to their family: "Param12" becomes "ParamN".
func canonicalKey(key string) string {
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	if i == len(key) || i == 0 {
		return key
	}
	return key[:i] + "N"
}

func keyNumber(key string) string {
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	return key[i:]
}

var paramLabels = []string{
	"reserved", "linkPathSize", "linkPath", "descriptor", "dataType", "dataSize",
	"name", "units", "help", "min", "max", "default",
	"mult", "div", "base", "offset",
	"linkMult", "linkDiv", "linkBase", "linkOffset",
	"decimalPlaces",
}

var connectionLabels = []string{
	"triggerTransport", "connectionParams",
	"otRPI", "otSize", "otFormat",
	"toRPI", "toSize", "toFormat",
	"configPart1Size", "configPart1Format", "configPart2Size", "configPart2Format",
	"name", "help", "path",
}

var assemblyLabels = []string{"name", "path", "size", "descriptor", "reserved1", "reserved2"}

// quotedLabels carry string literals; their typed value is the unquoted text.
var quotedLabels = map[string]bool{"name": true, "units": true, "help": true}

// labelsFor returns the positional field names of a structured entry family,
// or nil when the entry is a plain key/value pair.
func labelsFor(family string, n int) []string {
	var base []string
	switch family {
	case "ParamN":
		base = paramLabels
	case "ConnectionN":
		base = connectionLabels
	case "AssemN":
		base = assemblyLabels
	default:
		return nil
	}
	labels := make([]string, n)
	for i := range labels {
		switch {
		case i < len(base):
			labels[i] = base[i]
		case family == "AssemN":
			member := (i-len(base))/2 + 1
			if (i-len(base))%2 == 0 {
				labels[i] = fmt.Sprintf("member%dSize", member)
			} else {
				labels[i] = fmt.Sprintf("member%dRef", member)
			}
		default:
			labels[i] = fmt.Sprintf("field%d", i+1)
		}
	}
	return labels
}

func entryKind(section, family string) model.FieldKind {
	switch family {
	case "ParamN":
		return model.KindParameter
	case "AssemN":
		return model.KindAssembly
	case "ConnectionN":
		return model.KindConnection
	case "EnumN":
		return model.KindEnumeration
	}
	if strings.EqualFold(section, "Device") {
		return model.KindIdentity
	}
	return model.KindEntry
}

var requiredNames = map[string]bool{
	"File":     true,
	"Device":   true,
	"VendCode": true,
	"ProdCode": true,
	"ProdType": true,
	"MajRev":   true,
	"MinRev":   true,
}

var visibleNames = map[string]bool{
	"ParamN":      true,
	"AssemN":      true,
	"ConnectionN": true,
}

var identifierAttrs = map[string]bool{
	"dataType":         true,
	"dataSize":         true,
	"linkPath":         true,
	"path":             true,
	"triggerTransport": true,
	"otFormat":         true,
	"toFormat":         true,
	"code":             true,
}

var edsRules = doctree.NameRules{
	RequiredNames:   requiredNames,
	VisibleNames:    visibleNames,
	IdentifierAttrs: identifierAttrs,
	Canonical:       canonicalKey,
}
