// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "{Gov}Cmd:Kill-Cmd", Global(FieldKillCmd).Name(""))
	assert.Equal(t, "{Gov:Human}Cmd:Go-Cmd", Machine("Human", FieldGoCmd).Name(""))
	assert.Equal(t, "{Gov:Human-Dev:li}Pos:Up-Pos", Device("Human", "li", TargetPosField("Up")).Name(""))
	assert.Equal(t, "{Gov:Human-St:SE}Sts:Reach-Sts", State("Human", "SE", FieldReachSts).Name(""))
	assert.Equal(t, "{Gov:Human-Tr:M-SE}Sts:Active-Sts", Transition("Human", "M", "SE", FieldActiveSts).Name(""))
	assert.Equal(t, "SR:{Gov:Human}Sts:State-I", Machine("Human", FieldStateInfo).Name("SR:"))
}

func TestParseRoundTrip(t *testing.T) {
	channels := []Channel{
		Global(FieldActiveSel),
		Machine("Human", FieldGoCmd),
		Device("Human", "li", TargetPosField("Up")),
		State("Robot", "SA", FieldReachSts),
		Transition("Robot", "SE", "SA", FieldReachSts),
	}
	for _, prefix := range []string{"", "XF:31ID:"} {
		for _, c := range channels {
			parsed, err := Parse(prefix, c.Name(prefix))
			require.NoError(t, err)
			assert.Equal(t, c, parsed)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, name := range []string{
		"",
		"Gov}Sts:Ver-I",
		"{Gov",
		"{Gov}",
		"{Gov:Hu man}Cmd:Go-Cmd",
		"{Gov:Human-Tr:MSE}Sts:Reach-Sts",
		"pfx{Gov}Sts:Ver-I",
	} {
		_, err := Parse("", name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestParseWrongPrefix(t *testing.T) {
	_, err := Parse("A:", "B:{Gov}Sts:Ver-I")
	require.ErrorIs(t, err, ErrInvalidChannel)
}

func TestSubjects(t *testing.T) {
	c := Machine("Human", FieldGoCmd)
	assert.Equal(t, "pv.put.{Gov:Human}Cmd:Go-Cmd", PutSubject("", c))
	assert.Equal(t, "pv.get.{Gov:Human}Cmd:Go-Cmd", GetSubject("", c))
	assert.Equal(t, "pv.update.{Gov:Human}Cmd:Go-Cmd", UpdateSubject("", c))

	parsed, err := ChannelFromPutSubject("", PutSubject("", c))
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestTargetPosField(t *testing.T) {
	name, ok := TargetFromPosField(TargetPosField("Up"))
	require.True(t, ok)
	assert.Equal(t, "Up", name)

	_, ok = TargetFromPosField(FieldPosInfo)
	assert.False(t, ok)
	_, ok = TargetFromPosField(FieldConnSts)
	assert.False(t, ok)
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("li"))
	assert.True(t, ValidKey("Sample_1"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("a-b"))
	assert.False(t, ValidKey("a.b"))
	assert.False(t, ValidKey("a b"))
}
