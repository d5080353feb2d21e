// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uiload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dialogUI = `<?xml version="1.0" encoding="UTF-8"?>
<ui version="4.0">
 <class>Dialog</class>
 <widget class="QDialog" name="Dialog">
  <property name="geometry">
   <rect><x>0</x><y>0</y><width>400</width><height>300</height></rect>
  </property>
  <property name="windowTitle"><string>Backup</string></property>
  <property name="modal"><bool>true</bool></property>
  <layout class="QVBoxLayout" name="verticalLayout">
   <item>
    <widget class="QLineEdit" name="pathEdit">
     <property name="maxLength"><number>120</number></property>
    </widget>
   </item>
   <item>
    <widget class="QPushButton" name="okButton">
     <property name="text"><string>OK</string></property>
     <property name="sizePolicy">
      <sizepolicy hsizetype="Fixed" vsizetype="Preferred"><horstretch>0</horstretch></sizepolicy>
     </property>
    </widget>
   </item>
   <item>
    <spacer name="spacer"/>
   </item>
  </layout>
 </widget>
</ui>`

func TestLoad(t *testing.T) {
	root, err := Load(strings.NewReader(dialogUI))
	require.NoError(t, err)

	assert.Equal(t, "QDialog", root.Class)
	assert.Equal(t, "Dialog", root.Name)
	assert.Equal(t, "Backup", root.Properties["windowTitle"])
	assert.Equal(t, true, root.Properties["modal"])
	assert.Equal(t, map[string]any{"x": int64(0), "y": int64(0), "width": int64(400), "height": int64(300)}, root.Properties["geometry"])

	require.Len(t, root.Children, 1)
	layout := root.Children[0]
	assert.True(t, layout.Layout)
	assert.Len(t, layout.Children, 2)

	ok := root.Find("okButton")
	require.NotNil(t, ok)
	assert.Equal(t, "OK", ok.Properties["text"])
	assert.Equal(t, map[string]any{"hsizetype": "Fixed", "vsizetype": "Preferred", "horstretch": int64(0)}, ok.Properties["sizePolicy"])
	assert.Equal(t, int64(120), root.Find("pathEdit").Properties["maxLength"])
	assert.Nil(t, root.Find("nothing"))

	var names []string
	root.Walk(func(w *Widget) { names = append(names, w.Name) })
	assert.Equal(t, []string{"Dialog", "verticalLayout", "pathEdit", "okButton"}, names)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("<ui><broken"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("<form/>"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("<ui version=\"4.0\"/>"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.ui")
	require.NoError(t, os.WriteFile(path, []byte(dialogUI), 0o644))

	root, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Dialog", root.Name)

	_, err = LoadFile(path + ".missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
