package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name  string
		tags  []string
		title string
		want  bool
	}{
		{"single cjk tag", []string{"夜晚的水母不会游泳"}, "[喵萌奶茶屋&LoliHouse] 夜晚的水母不会游泳 / Yoru no Kurage wa Oyogenai - 04 [WebRip 1080p]", true},
		{"simplified tag traditional title", []string{"夜晚的水母不会游泳"}, "[ANi] Yoru no Kurage wa Oyogenai / 夜晚的水母不會游泳 - 04 [1080P][Baha][WEB-DL][AAC AVC][CHT]", true},
		{"traditional tag simplified title", []string{"葬送的芙莉蓮"}, "[喵萌奶茶屋] 葬送的芙莉莲 - 28 [1080p][简体]", true},
		{"all tags present", []string{"GIRLS", "BAND", "CRY"}, "[北宇治字幕组] GIRLS BAND CRY [04][WebRip][HEVC_AAC][简体内嵌]", true},
		{"case insensitive", []string{"girls", "band"}, "[北宇治字幕组] GIRLS BAND CRY [04]", true},
		{"full width title", []string{"GIRLS"}, "ＧＩＲＬＳ ＢＡＮＤ ＣＲＹ", true},
		{"bracketed tag", []string{"[北宇治字幕组]", "简体内嵌"}, "[北宇治字幕组] GIRLS BAND CRY [04][简体内嵌]", true},
		{"one tag missing", []string{"GIRLS", "1080p"}, "[北宇治字幕组] GIRLS BAND CRY [04][WebRip]", false},
		{"no tags", nil, "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.tags, tt.title))
		})
	}
}

func TestFolderName(t *testing.T) {
	assert.Equal(t, "夜晚的水母不会游泳", FolderName([]string{"夜晚的水母不会游泳"}))
	assert.Equal(t, "GIRLS BAND CRY", FolderName([]string{"GIRLS", "BAND", "CRY"}))
	assert.Equal(t, "Re Zero  S3", FolderName([]string{"Re:Zero", "/S3"}))
	assert.Equal(t, "", FolderName([]string{"?", "*"}))
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		title string
		want  []string
	}{
		{"[ANi] Yoru no Kurage wa Oyogenai / 夜晚的水母不會游泳 - 04 [1080P][Baha]", []string{"Yoru", "no", "Kurage", "wa", "Oyogenai"}},
		{"[北宇治字幕组] GIRLS BAND CRY [04][WebRip][HEVC_AAC]", []string{"GIRLS", "BAND", "CRY"}},
		{"[Group] Show Name - 05 [1080p]", []string{"Show", "Name"}},
		{"[Only][Brackets]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTags(tt.title))
		})
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"GIRLS", "BAND"}, ParseTags("  GIRLS   BAND "))
	assert.Nil(t, ParseTags("   "))
}
