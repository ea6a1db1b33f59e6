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
	"os"
	"strings"
	"testing"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("testdata/sensor.xml")
	require.NoError(t, err)
	return raw
}

func parse(t *testing.T, raw []byte) *model.DeviceDescription {
	t.Helper()
	dd, _, err := Codec{}.Parse(raw, model.DefaultParseLimits)
	require.NoError(t, err)
	return dd
}

func stripOffsets(dd *model.DeviceDescription) {
	model.Walk(dd.Fields, func(f model.Field) {
		if op, ok := f.(*model.OpaqueSection); ok {
			op.StartOffset, op.EndOffset = 0, 0
		}
	})
}

func TestParseExtractsDeviceIdentity(t *testing.T) {
	dd, diags, err := Codec{}.Parse(loadFixture(t), model.DefaultParseLimits)
	require.NoError(t, err)
	assert.Empty(t, diags)

	assert.Equal(t, model.FormatIODD, dd.Format)
	assert.Equal(t, "888", dd.VendorID)
	assert.Equal(t, "4711", dd.DeviceID)
	assert.Equal(t, "ACME Sensors GmbH", dd.VendorName)
	assert.Equal(t, "PS-100 Proximity Switch", dd.ProductName)
	assert.Equal(t, "1.1", dd.FormatVersion)
	assert.Equal(t, "en", dd.PrimaryLanguage)
	assert.Equal(t, "\t", dd.Indent)
	assert.Equal(t, "\n", dd.LineEnding)

	require.Len(t, dd.Fields, 3)
	assert.Equal(t, "#prolog", dd.Fields[0].FieldName())
	assert.Equal(t, RootElement, dd.Fields[1].FieldName())
	assert.Equal(t, "#epilog", dd.Fields[2].FieldName())
}

func TestParseKeepsIdentifiersAndResolvesCaches(t *testing.T) {
	dd := parse(t, loadFixture(t))

	v := dd.FindField("V_SwitchMode")
	require.NotNil(t, v)
	assert.Equal(t, model.KindVariable, v.Kind)
	assert.Equal(t, "TI_Foo", v.NameTextID)
	assert.Equal(t, "TI_Bar", v.DescriptionTextID)
	assert.Equal(t, "Switch mode", v.ResolvedName)
	assert.Equal(t, "DT_SwitchMode", v.DataType)
	assert.Equal(t, "rw", v.AccessRights)
	assert.Equal(t, "0", v.DefaultValue)

	sp := dd.FindField("V_Setpoint")
	require.NotNil(t, sp)
	assert.Equal(t, "UIntegerT", sp.DataType)
	assert.Equal(t, "16", sp.Length)
	assert.Equal(t, "0", sp.MinValue)
	assert.Equal(t, "1000", sp.MaxValue)

	assert.Len(t, dd.TextResources, 18)
	assert.Equal(t, "TI_VendorText", dd.TextResources[0].TextID)
	bar, ok := model.NewTextIndex(dd).Resolve("TI_Bar", "en")
	require.True(t, ok)
	assert.Equal(t, "Selects the switching behaviour & polarity", bar)
}

func TestParseCapturesEnumerationInOrder(t *testing.T) {
	dd := parse(t, loadFixture(t))

	dt := dd.FindField("DT_SwitchMode")
	require.NotNil(t, dt)
	require.Len(t, dt.Enumeration, 2)
	assert.Equal(t, "0", dt.Enumeration[0].Code)
	assert.Equal(t, "Disabled", dt.Enumeration[0].Label)
	assert.Equal(t, "TI_Disabled", dt.Enumeration[0].LabelTextID)
	assert.Equal(t, "1", dt.Enumeration[1].Code)
	assert.Equal(t, "Enabled", dt.Enumeration[1].Label)
}

func TestParseKeepsUnmodeledElementsVerbatim(t *testing.T) {
	raw := loadFixture(t)
	dd := parse(t, raw)

	var names []string
	for _, op := range dd.OpaqueSections() {
		names = append(names, op.Name)
		assert.Equal(t, string(raw[op.StartOffset:op.EndOffset]), string(op.Content))
	}
	assert.ElementsMatch(t, []string{
		"#prolog", "#epilog", "DocumentInfo", "ProfileHeader", "Features",
		"#comment", "UserInterface", "CommNetworkProfile", "Stamp",
	}, names)
}

func TestReconstructCanonicalDocumentIsByteIdentical(t *testing.T) {
	raw := loadFixture(t)
	dd := parse(t, raw)

	out, diags := Codec{}.Reconstruct(dd)
	assert.Empty(t, diags)
	assert.Equal(t, string(raw), out)
}

func TestRoundTripIsIdempotent(t *testing.T) {
	first := parse(t, loadFixture(t))
	out, _ := Codec{}.Reconstruct(first)
	second := parse(t, []byte(out))

	stripOffsets(first)
	stripOffsets(second)
	assert.Equal(t, first, second)
}

func TestReconstructFollowsSchemaOrder(t *testing.T) {
	raw := `<IODevice>
  <ProfileBody>
    <DeviceFunction>
      <VariableCollection>
        <Variable id="V_A" index="70">
          <Description textId="TI_Bar"/>
          <Name textId="TI_Foo"/>
          <Datatype xsi:type="BooleanT"/>
        </Variable>
      </VariableCollection>
    </DeviceFunction>
    <DeviceIdentity vendorId="1" deviceId="2"/>
  </ProfileBody>
</IODevice>`
	dd := parse(t, []byte(raw))
	assert.Equal(t, "  ", dd.Indent)

	out, _ := Codec{}.Reconstruct(dd)
	identity := strings.Index(out, "<DeviceIdentity")
	function := strings.Index(out, "<DeviceFunction")
	require.True(t, identity > 0 && function > 0)
	assert.Less(t, identity, function)

	datatype := strings.Index(out, "<Datatype")
	name := strings.Index(out, `<Name textId="TI_Foo"/>`)
	descr := strings.Index(out, `<Description textId="TI_Bar"/>`)
	assert.Less(t, datatype, name)
	assert.Less(t, name, descr)
}

func TestParseNumbersSiblingsInSchemaOrder(t *testing.T) {
	raw := `<IODevice>
	<ProfileBody>
		<DeviceFunction>
			<VariableCollection>
				<Variable id="V_A">
					<Description textId="TI_Bar"/>
					<Datatype xsi:type="BooleanT"/>
				</Variable>
			</VariableCollection>
		</DeviceFunction>
		<DeviceIdentity vendorId="1" deviceId="2"/>
	</ProfileBody>
</IODevice>`
	dd := parse(t, []byte(raw))

	v := dd.FindField("V_A")
	require.NotNil(t, v)
	require.Len(t, v.Children, 1)
	assert.Equal(t, "Datatype", v.Children[0].FieldName())
	assert.Equal(t, 0, v.Children[0].Position())

	body := dd.StructuredFields()[1]
	require.Equal(t, "ProfileBody", body.ElementName)
	require.Len(t, body.Children, 2)
	assert.Equal(t, "DeviceIdentity", body.Children[0].FieldName())
	assert.Equal(t, 0, body.Children[0].Position())
	assert.Equal(t, "DeviceFunction", body.Children[1].FieldName())
	assert.Equal(t, 1, body.Children[1].Position())
}

func TestRoundTripPreservesEntitiesOfNonCanonicalDocument(t *testing.T) {
	raw := `<IODevice>
	<ProfileBody>
		<DeviceFunction>
			<VariableCollection>
				<Variable id="V_Mode" accessRights="rw">
					<Description textId="TI_ModeHelp"/>
					<Datatype xsi:type="UIntegerT" bitLength="8">
						<SingleValue value="0">
							<Name textId="TI_Off"/>
						</SingleValue>
						<!-- reserved -->
						<SingleValue value="1"/>
					</Datatype>
					<Name textId="TI_Mode"/>
				</Variable>
			</VariableCollection>
		</DeviceFunction>
		<DeviceIdentity vendorId="1" deviceId="2"/>
	</ProfileBody>
	<ExternalTextCollection>
		<PrimaryLanguage xml:lang="en">
			<Text id="TI_Mode" value="Mode"/>
			<Text id="TI_ModeHelp" value="Operating mode"/>
			<Text id="TI_Off" value="Off"/>
		</PrimaryLanguage>
	</ExternalTextCollection>
</IODevice>`
	first := parse(t, []byte(raw))
	out, diags := Codec{}.Reconstruct(first)
	assert.Empty(t, diags)
	require.NotEqual(t, raw, out)
	second := parse(t, []byte(out))

	stripOffsets(first)
	stripOffsets(second)
	assert.Equal(t, first, second)

	again, _ := Codec{}.Reconstruct(second)
	assert.Equal(t, out, again)
}

func TestReconstructReplaysStoredTextIdentifiers(t *testing.T) {
	dd := &model.DeviceDescription{
		Format:          model.FormatIODD,
		PrimaryLanguage: "en",
		Fields: []model.Field{
			&model.StructuredField{ElementName: RootElement, Kind: model.KindDocument, Children: []model.Field{
				&model.StructuredField{ElementName: "ProfileBody", Ordinal: 0, Children: []model.Field{
					&model.StructuredField{ElementName: "DeviceFunction", Ordinal: 0, Children: []model.Field{
						&model.StructuredField{ElementName: "VariableCollection", Children: []model.Field{
							&model.StructuredField{
								ElementName:       "Variable",
								Kind:              model.KindVariable,
								Attributes:        []model.Attribute{{Name: "id", Value: "V_X"}},
								NameTextID:        "TI_Foo",
								DescriptionTextID: "TI_Bar",
							},
						}},
					}},
				}},
				&model.StructuredField{ElementName: "ExternalTextCollection", Ordinal: 1, Children: []model.Field{
					&model.StructuredField{ElementName: "PrimaryLanguage", Kind: model.KindLanguage, Attributes: []model.Attribute{{Name: "xml:lang", Value: "en"}}},
				}},
			}},
		},
		TextResources: []model.TextResource{
			{TextID: "TI_Foo", Language: "en", Value: "Foo", Ordinal: 0},
			{TextID: "TI_Bar", Language: "en", Value: "Bar", Ordinal: 1},
		},
	}

	out, diags := Codec{}.Reconstruct(dd)
	assert.Empty(t, diags)
	for _, want := range []string{`textId="TI_Foo"`, `textId="TI_Bar"`, `id="TI_Foo"`, `id="TI_Bar"`} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "TI_1")
	assert.NotContains(t, out, "TI_0")

	back := parse(t, []byte(out))
	ids := []string{}
	for _, tr := range back.TextResources {
		ids = append(ids, tr.TextID)
	}
	assert.Equal(t, []string{"TI_Foo", "TI_Bar"}, ids)
}

func TestReconstructEmitsEnumerationInOriginalOrder(t *testing.T) {
	raw := `<IODevice>
	<ProfileBody>
		<DeviceFunction>
			<DatatypeCollection>
				<Datatype id="DT_Mode" xsi:type="UIntegerT" bitLength="8">
					<SingleValue value="0">
						<Name textId="TI_Disabled"/>
					</SingleValue>
					<SingleValue value="1">
						<Name textId="TI_Enabled"/>
					</SingleValue>
				</Datatype>
			</DatatypeCollection>
		</DeviceFunction>
	</ProfileBody>
</IODevice>`
	dd := parse(t, []byte(raw))
	out, _ := Codec{}.Reconstruct(dd)
	assert.Equal(t, raw, out)

	back := parse(t, []byte(out))
	dt := back.FindField("DT_Mode")
	require.NotNil(t, dt)
	require.Len(t, dt.Enumeration, 2)
	assert.Equal(t, "0", dt.Enumeration[0].Code)
	assert.Equal(t, "TI_Disabled", dt.Enumeration[0].LabelTextID)
	assert.Equal(t, "1", dt.Enumeration[1].Code)
	assert.Equal(t, "TI_Enabled", dt.Enumeration[1].LabelTextID)
}

func TestReconstructDoesNotSynthesizeAbsentFields(t *testing.T) {
	raw := `<IODevice>
	<ProfileBody>
		<DeviceFunction>
			<VariableCollection>
				<Variable id="V_Plain" index="80">
					<Datatype xsi:type="BooleanT"/>
				</Variable>
			</VariableCollection>
		</DeviceFunction>
	</ProfileBody>
</IODevice>`
	dd := parse(t, []byte(raw))
	out, _ := Codec{}.Reconstruct(dd)
	assert.NotContains(t, out, "accessRights")
	assert.NotContains(t, out, "defaultValue")
	assert.NotContains(t, out, "<Name")
	assert.Equal(t, raw, out)
}

func TestReconstructKeepsVendorExtensionVerbatim(t *testing.T) {
	ext := `<acme:Calibration xmlns:acme="urn:acme" factor="1.25">
				<acme:Point x="0"   y="0" />
			</acme:Calibration>`
	raw := "<IODevice>\n\t<ProfileBody>\n\t\t<DeviceFunction>\n\t\t\t" + ext + "\n\t\t</DeviceFunction>\n\t</ProfileBody>\n</IODevice>"

	dd := parse(t, []byte(raw))
	ops := dd.OpaqueSections()
	require.Len(t, ops, 1)
	assert.Equal(t, "acme:Calibration", ops[0].Name)
	assert.Equal(t, ext, string(ops[0].Content))

	out, _ := Codec{}.Reconstruct(dd)
	assert.Contains(t, out, ext)
	assert.Equal(t, raw, out)
}

func TestReconstructWarnsButContinuesOnIncompleteField(t *testing.T) {
	dd := &model.DeviceDescription{Fields: []model.Field{
		&model.StructuredField{ElementName: RootElement, Children: []model.Field{
			&model.StructuredField{ElementName: "ProfileBody", Children: []model.Field{
				&model.StructuredField{ElementName: "DeviceFunction", Children: []model.Field{
					&model.StructuredField{ElementName: "VariableCollection", Children: []model.Field{
						&model.StructuredField{ElementName: "Variable", Ordinal: 0},
						&model.StructuredField{ElementName: "Variable", Ordinal: 1, Attributes: []model.Attribute{{Name: "id", Value: "V_Ok"}}},
					}},
				}},
			}},
		}},
	}}

	out, diags := Codec{}.Reconstruct(dd)
	require.True(t, diags.HasCode(DiagPartialOutput))
	assert.Contains(t, out, `<Variable id="V_Ok"/>`)
	assert.Contains(t, out, "<Variable/>")
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"mismatched tags": "<IODevice>\n<ProfileBody>\n</DeviceIdentity>\n</IODevice>",
		"unclosed":        "<IODevice><ProfileBody>",
		"wrong root":      "<Device/>",
		"not xml":         "[File]\nRevision = 1.1;",
		"two roots":       "<IODevice/><IODevice/>",
		"empty":           "",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Codec{}.Parse([]byte(raw), model.DefaultParseLimits)
			require.Error(t, err)
			var malformed *model.MalformedInputError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, model.FormatIODD, malformed.Format)
		})
	}
}

func TestParseReportsLineOfMismatch(t *testing.T) {
	_, _, err := Codec{}.Parse([]byte("<IODevice>\n<ProfileBody>\n</DeviceIdentity>\n</IODevice>"), model.DefaultParseLimits)
	var malformed *model.MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 3, malformed.Line)
}

func TestParseEnforcesDepthLimit(t *testing.T) {
	raw := "<IODevice>" + strings.Repeat("<a>", 10) + strings.Repeat("</a>", 10) + "</IODevice>"
	_, _, err := Codec{}.Parse([]byte(raw), model.ParseLimits{MaxDepth: 5})
	var limit *model.InputLimitError
	require.ErrorAs(t, err, &limit)
	assert.True(t, model.IsMalformedInput(err))
}

func TestParseEnforcesEnumerationLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<IODevice><ProfileBody><DeviceFunction><DatatypeCollection><Datatype id=\"DT\" xsi:type=\"UIntegerT\">")
	for i := 0; i < 20; i++ {
		b.WriteString(`<SingleValue value="1"/>`)
	}
	b.WriteString("</Datatype></DatatypeCollection></DeviceFunction></ProfileBody></IODevice>")

	_, _, err := Codec{}.Parse([]byte(b.String()), model.ParseLimits{MaxEnumValues: 10})
	var limit *model.InputLimitError
	require.ErrorAs(t, err, &limit)
	// The parse stops at the first value past the limit.
	assert.Equal(t, int64(11), limit.Actual)
	assert.Equal(t, int64(10), limit.Max)
}

func TestParseRecordsDanglingReferencesAsDiagnostics(t *testing.T) {
	raw := `<IODevice>
	<ProfileBody>
		<DeviceIdentity vendorId="1" deviceId="2"/>
		<DeviceFunction>
			<VariableCollection>
				<Variable id="V_A" index="64">
					<DatatypeRef datatypeId="DT_Missing"/>
					<Name textId="TI_Missing"/>
				</Variable>
			</VariableCollection>
		</DeviceFunction>
	</ProfileBody>
</IODevice>`
	dd, diags, err := Codec{}.Parse([]byte(raw), model.DefaultParseLimits)
	require.NoError(t, err)
	assert.True(t, diags.HasCode(DiagUnresolvedDatatype))
	assert.True(t, diags.HasCode(DiagUnresolvedText))
	assert.True(t, diags.HasCode(DiagMissingLanguage))

	v := dd.FindField("V_A")
	require.NotNil(t, v)
	assert.Equal(t, "TI_Missing", v.NameTextID)
	assert.Empty(t, v.ResolvedName)
}

func TestBuildTreeKeysAndCounts(t *testing.T) {
	root, err := Codec{}.BuildTree(loadFixture(t), model.DefaultParseLimits)
	require.NoError(t, err)
	assert.Equal(t, RootElement, root.Name)

	vc := child(root, "ProfileBody", "DeviceFunction", "VariableCollection")
	require.NotNil(t, vc)
	var keys []string
	for _, c := range vc.Elements() {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"@id='V_VendorName'", "@id='V_ProductName'", "@id='V_SwitchMode'", "@id='V_Setpoint'"}, keys)

	errs := child(root, "ProfileBody", "DeviceFunction", "ErrorTypeCollection")
	require.NotNil(t, errs)
	assert.Equal(t, "@code='128' and @additionalCode='17'", errs.Elements()[0].Key)
}
