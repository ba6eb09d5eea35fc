package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/filesystem"
	"github.com/voicepages/voicepages/key"
)

func TestSetup(t *testing.T) {
	filesystem.SetMemMapFs()

	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetString(key.ServerURL), ShouldEqual, "http://localhost:9000")
			So(viper.GetFloat64(key.PlayerSpeed), ShouldEqual, 1.0)
			So(viper.GetString(key.PlayerOnEnd), ShouldEqual, "stop")
		})

		Convey("Should register every defined key", func() {
			So(len(Default), ShouldEqual, key.DefinedFieldsCount)
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("bookmark.interval.seconds")
			So(result, ShouldEqual, "bookmark_interval_seconds")
		})

		Convey("Env names carry the application prefix", func() {
			f := Default[key.PlayerOnEnd]
			So(f.Env(), ShouldEqual, "VOICEPAGES_PLAYER_ON_END")
		})
	})
}
