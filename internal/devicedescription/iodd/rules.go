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

package iodd

import (
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// RootElement is the document element of every profile document.
const RootElement = "IODevice"

// childOrder lists, per parent, the children that are modeled and the order
// the IODD schema declares them in. Children not listed are kept verbatim.
var childOrder = map[string][]string{
	RootElement:               {"DocumentInfo", "ProfileHeader", "ProfileBody", "CommNetworkProfile", "ExternalTextCollection", "Stamp"},
	"ProfileBody":             {"DeviceIdentity", "DeviceFunction"},
	"DeviceIdentity":          {"VendorText", "VendorUrl", "VendorLogo", "DeviceName", "DeviceFamily", "DeviceVariantCollection"},
	"DeviceVariantCollection": {"DeviceVariant"},
	"DeviceVariant":           {"Name", "Description"},
	"DeviceFunction":          {"Features", "DatatypeCollection", "VariableCollection", "ProcessDataCollection", "ErrorTypeCollection", "EventCollection", "UserInterface"},
	"DatatypeCollection":      {"Datatype"},
	"VariableCollection":      {"StdVariableRef", "DirectParameterOverlay", "Variable"},
	"StdVariableRef":          {"SingleValue", "StdSingleValueRef", "StdRecordItemRef"},
	"Variable":                {"Datatype", "DatatypeRef", "RecordItemInfo", "Name", "Description"},
	"DirectParameterOverlay":  {"Datatype", "DatatypeRef", "RecordItemInfo", "Name", "Description"},
	"Datatype":                {"SingleValue", "ValueRange", "RecordItem"},
	"SimpleDatatype":          {"SingleValue", "ValueRange"},
	"RecordItem":              {"SimpleDatatype", "DatatypeRef", "Name", "Description"},
	"ProcessDataCollection":   {"ProcessData"},
	"ProcessData":             {"Condition", "ProcessDataIn", "ProcessDataOut"},
	"ProcessDataIn":           {"Datatype", "DatatypeRef", "Name"},
	"ProcessDataOut":          {"Datatype", "DatatypeRef", "Name"},
	"ErrorTypeCollection":     {"StdErrorTypeRef", "ErrorType"},
	"ErrorType":               {"Name", "Description"},
	"EventCollection":         {"StdEventRef", "Event"},
	"Event":                   {"Name", "Description"},
	"ExternalTextCollection":  {"PrimaryLanguage", "Language"},
	"PrimaryLanguage":         {"Text"},
	"Language":                {"Text"},
}

// verbatimElements are listed in childOrder for placement but their content
// is not modeled.
var verbatimElements = map[string]bool{
	"DocumentInfo":       true,
	"ProfileHeader":      true,
	"CommNetworkProfile": true,
	"Stamp":              true,
	"Features":           true,
	"UserInterface":      true,
}

var kinds = map[string]model.FieldKind{
	RootElement:               model.KindDocument,
	"ProfileBody":             model.KindSection,
	"DeviceFunction":          model.KindSection,
	"DatatypeCollection":      model.KindSection,
	"VariableCollection":      model.KindSection,
	"ProcessDataCollection":   model.KindSection,
	"ErrorTypeCollection":     model.KindSection,
	"EventCollection":         model.KindSection,
	"ExternalTextCollection":  model.KindSection,
	"DeviceVariantCollection": model.KindSection,
	"DeviceIdentity":          model.KindIdentity,
	"DeviceVariant":           model.KindIdentity,
	"VendorText":              model.KindTextReference,
	"VendorUrl":               model.KindTextReference,
	"DeviceName":              model.KindTextReference,
	"DeviceFamily":            model.KindTextReference,
	"Variable":                model.KindVariable,
	"DirectParameterOverlay":  model.KindVariable,
	"StdVariableRef":          model.KindParameter,
	"Datatype":                model.KindDatatype,
	"DatatypeRef":             model.KindDatatype,
	"SimpleDatatype":          model.KindDatatype,
	"RecordItem":              model.KindRecordItem,
	"RecordItemInfo":          model.KindRecordItem,
	"ProcessData":             model.KindProcessData,
	"ProcessDataIn":           model.KindProcessData,
	"ProcessDataOut":          model.KindProcessData,
	"ErrorType":               model.KindErrorType,
	"StdErrorTypeRef":         model.KindErrorType,
	"Event":                   model.KindEvent,
	"StdEventRef":             model.KindEvent,
	"PrimaryLanguage":         model.KindLanguage,
	"Language":                model.KindLanguage,
}

// keyAttrs names the identity attributes per element; "id" is the default.
var keyAttrs = map[string][]string{
	"SingleValue":       {"value"},
	"StdSingleValueRef": {"value"},
	"RecordItem":        {"subindex"},
	"RecordItemInfo":    {"subindex"},
	"StdRecordItemRef":  {"subindex"},
	"ErrorType":         {"code", "additionalCode"},
	"StdErrorTypeRef":   {"code", "additionalCode"},
	"Event":             {"code"},
	"StdEventRef":       {"code"},
	"DatatypeRef":       {"datatypeId"},
	"PrimaryLanguage":   {"xml:lang"},
	"Language":          {"xml:lang"},
	"DeviceVariant":     {"productId"},
}

// originalIDAttrs is the precedence used to pick a field's original identifier.
var originalIDAttrs = []string{"id", "datatypeId", "subindex", "code", "productId", "index"}

func localName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func kindOf(name string) model.FieldKind {
	if k, ok := kinds[name]; ok {
		return k
	}
	return model.KindElement
}

func keyFor(n *doctree.Node) string {
	if attrs, ok := keyAttrs[n.Name]; ok {
		return doctree.KeyOf(n, attrs...)
	}
	return doctree.KeyOf(n, "id")
}

func rankIn(parent string) func(string) (int, bool) {
	order := childOrder[parent]
	return func(name string) (int, bool) {
		for i, n := range order {
			if n == name {
				return i, true
			}
		}
		return 0, false
	}
}

func allowedChild(parent, child string) bool {
	_, ok := rankIn(parent)(child)
	return ok
}

var requiredElements = map[string]bool{
	RootElement:      true,
	"ProfileBody":    true,
	"DeviceIdentity": true,
	"DeviceFunction": true,
}

var visibleElements = map[string]bool{
	"Variable":       true,
	"StdVariableRef": true,
	"ProcessDataIn":  true,
	"ProcessDataOut": true,
	"Event":          true,
	"ErrorType":      true,
}

var identifierAttrs = map[string]bool{
	"id":             true,
	"textId":         true,
	"datatypeId":     true,
	"xsi:type":       true,
	"code":           true,
	"additionalCode": true,
	"index":          true,
	"subindex":       true,
	"vendorId":       true,
	"deviceId":       true,
	"productId":      true,
	"xml:lang":       true,
}

type rules struct{}

func (rules) Required(n *doctree.Node) bool { return requiredElements[n.Name] }

func (rules) ConsumerVisible(n *doctree.Node) bool { return visibleElements[n.Name] }

func (rules) IdentifierAttr(n *doctree.Node, attr string) bool {
	if attr == "value" {
		return n.Name == "SingleValue" || n.Name == "StdSingleValueRef"
	}
	return identifierAttrs[attr]
}
