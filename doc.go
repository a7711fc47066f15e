/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package marc21 allows parsing, repairing and creating ISO 2709 / MARC21 bibliographic records.

# MARC21

MARC21 is a binary bibliographic record format: a 24-byte Leader, a Directory of
12-byte entries mapping tags to field offsets, and a data area of length-prefixed
control and data fields terminated by sentinel bytes.

# Read MARC records

The [Reader] decodes a stream of concatenated MARC21 records. It is initialized with
[NewReader] and configured with [ReaderOption] values such as [WithPermissiveReading]
and [WithCombinePartials]. The [FileReader] wraps a file on disk (optionally
gzip-compressed) and drives a [Reader] over it.

# Create MARC records

[Encode] writes a [Record] back out in ISO 2709 form, recomputing its Directory and
Leader. The [FileWriter] streams records to a file and publishes it atomically on Close.

# Permissive repair

Structural anomalies (misstated lengths, missing terminators, misaligned directories)
are repaired rather than failing the record when [WithPermissiveReading] is set. Each
repair in a returned record is reported through [Reader.Diagnostics]; in strict mode a
record with a MajorError or Fatal anomaly is skipped rather than returned.
*/
package marc21
